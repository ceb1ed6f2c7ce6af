package model

type Brand struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:80;uniqueIndex;not null" json:"name"`
}

func (Brand) TableName() string {
	return "brands"
}
