package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/detodo/marketplace-backend/internal/authz"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tradeFixture struct {
	store    *memStore
	notes    *recordingNotifier
	trades   *fakeTradeRepo
	products ProductService
	svc      TradeService
}

func newTradeFixture(t *testing.T) *tradeFixture {
	t.Helper()
	store := newMemStore()
	productRepo := &fakeProductRepo{s: store}
	tradeRepo := &fakeTradeRepo{s: store}
	notes := &recordingNotifier{}
	return &tradeFixture{
		store:    store,
		notes:    notes,
		trades:   tradeRepo,
		products: NewProductService(productRepo, nil),
		svc:      NewTradeService(tradeRepo, productRepo, notes),
	}
}

func (f *tradeFixture) propose(t *testing.T, proposer authz.Identity, offered, requested string) *model.Trade {
	t.Helper()
	tr, err := f.svc.Propose(context.Background(), proposer, ProposeInput{
		OfferedProductID:   offered,
		RequestedProductID: requested,
	})
	require.NoError(t, err)
	return tr
}

func TestTradeApproveMarksBothSold(t *testing.T) {
	ctx := context.Background()
	f := newTradeFixture(t)
	p1 := createProduct(t, f.products, seller, "Bike", "200")
	p2 := createProduct(t, f.products, buyer, "Scooter", "150")

	tr := f.propose(t, buyer, p2.ID, p1.ID)
	assert.Equal(t, model.TradeStatusPending, tr.Status)
	assert.Equal(t, seller.UserID, tr.OwnerID)
	assert.Equal(t, buyer.UserID, tr.ProposerID)
	assert.Equal(t, model.ProductStatusAvailable, f.store.product(p1.ID).Status, "propose changes no product")

	got, err := f.svc.Resolve(ctx, tr.ID, seller, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, model.TradeStatusApproved, got.Status)
	assert.NotNil(t, got.ResolvedAt)

	for _, id := range []string{p1.ID, p2.ID} {
		p := f.store.product(id)
		assert.Equal(t, model.ProductStatusSold, p.Status)
		require.NotNil(t, p.SoldViaTradeID)
		assert.Equal(t, tr.ID, *p.SoldViaTradeID)
	}
	assert.Equal(t, model.TradeStatusApproved, f.store.trade(tr.ID).Status)

	assert.Equal(t, []string{model.NotificationTradeProposed}, f.notes.types(seller.UserID))
	assert.Equal(t, []string{model.NotificationTradeApproved}, f.notes.types(buyer.UserID))
}

func TestTradeRejectLeavesProductsAvailable(t *testing.T) {
	f := newTradeFixture(t)
	p1 := createProduct(t, f.products, seller, "Bike", "200")
	p2 := createProduct(t, f.products, buyer, "Scooter", "150")
	tr := f.propose(t, buyer, p2.ID, p1.ID)

	got, err := f.svc.Resolve(context.Background(), tr.ID, seller, DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, model.TradeStatusRejected, got.Status)
	assert.Equal(t, model.ProductStatusAvailable, f.store.product(p1.ID).Status)
	assert.Equal(t, model.ProductStatusAvailable, f.store.product(p2.ID).Status)
	assert.Equal(t, []string{model.NotificationTradeRejected}, f.notes.types(buyer.UserID))
}

func TestMarkSoldAfterTradeApprovalConflicts(t *testing.T) {
	ctx := context.Background()
	f := newTradeFixture(t)
	p1 := createProduct(t, f.products, seller, "Bike", "200")
	p2 := createProduct(t, f.products, buyer, "Scooter", "150")
	tr := f.propose(t, buyer, p2.ID, p1.ID)
	_, err := f.svc.Resolve(ctx, tr.ID, seller, DecisionApprove)
	require.NoError(t, err)

	_, err = f.products.MarkSold(ctx, p1.ID, seller)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestTradeResolveIsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		first  Decision
		second Decision
	}{
		{"approve then reject", DecisionApprove, DecisionReject},
		{"approve twice", DecisionApprove, DecisionApprove},
		{"reject then approve", DecisionReject, DecisionApprove},
		{"reject twice", DecisionReject, DecisionReject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newTradeFixture(t)
			p1 := createProduct(t, f.products, seller, "Bike", "200")
			p2 := createProduct(t, f.products, buyer, "Scooter", "150")
			tr := f.propose(t, buyer, p2.ID, p1.ID)

			first, err := f.svc.Resolve(ctx, tr.ID, seller, tt.first)
			require.NoError(t, err)
			_, err = f.svc.Resolve(ctx, tr.ID, seller, tt.second)
			assert.ErrorIs(t, err, ErrConflict)
			assert.Equal(t, first.Status, f.store.trade(tr.ID).Status)
		})
	}
}

func TestTradeResolveAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newTradeFixture(t)
	p1 := createProduct(t, f.products, seller, "Bike", "200")
	p2 := createProduct(t, f.products, buyer, "Scooter", "150")
	tr := f.propose(t, buyer, p2.ID, p1.ID)

	for _, d := range []Decision{DecisionApprove, DecisionReject} {
		_, err := f.svc.Resolve(ctx, tr.ID, buyer, d)
		assert.ErrorIs(t, err, ErrForbidden, "proposer cannot %s", d)
		_, err = f.svc.Resolve(ctx, tr.ID, authz.Identity{UserID: "stranger"}, d)
		assert.ErrorIs(t, err, ErrForbidden)
	}
	assert.Equal(t, model.TradeStatusPending, f.store.trade(tr.ID).Status)

	_, err := f.svc.Resolve(ctx, "missing", seller, DecisionApprove)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Resolve(ctx, tr.ID, seller, Decision("maybe"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTradeApproveWithSoldProductStaysPending(t *testing.T) {
	ctx := context.Background()
	f := newTradeFixture(t)
	p1 := createProduct(t, f.products, seller, "Bike", "200")
	p2 := createProduct(t, f.products, buyer, "Scooter", "150")
	tr := f.propose(t, buyer, p2.ID, p1.ID)

	// the proposer sells the offered product elsewhere before the owner decides
	_, err := f.products.MarkSold(ctx, p2.ID, buyer)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, tr.ID, seller, DecisionApprove)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, model.TradeStatusPending, f.store.trade(tr.ID).Status)
	assert.Equal(t, model.ProductStatusAvailable, f.store.product(p1.ID).Status, "no partial mutation")

	// rejecting explicitly is still allowed
	got, err := f.svc.Resolve(ctx, tr.ID, seller, DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, model.TradeStatusRejected, got.Status)
}

func TestTradeApproveWithDeletedProduct(t *testing.T) {
	ctx := context.Background()
	f := newTradeFixture(t)
	p1 := createProduct(t, f.products, seller, "Bike", "200")
	p2 := createProduct(t, f.products, buyer, "Scooter", "150")
	tr := f.propose(t, buyer, p2.ID, p1.ID)
	require.NoError(t, f.products.Delete(ctx, p2.ID, buyer))

	_, err := f.svc.Resolve(ctx, tr.ID, seller, DecisionApprove)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, model.TradeStatusPending, f.store.trade(tr.ID).Status)
}

func TestConcurrentApprovalsOnSameProduct(t *testing.T) {
	f := newTradeFixture(t)
	other := authz.Identity{UserID: "buyer-2"}
	target := createProduct(t, f.products, seller, "Rare vinyl", "90")
	offerA := createProduct(t, f.products, buyer, "Turntable", "80")
	offerB := createProduct(t, f.products, other, "Headphones", "70")
	t1 := f.propose(t, buyer, offerA.ID, target.ID)
	t2 := f.propose(t, other, offerB.ID, target.ID)

	// hold both approvals until each has passed its availability pre-check
	var arrived sync.WaitGroup
	arrived.Add(2)
	f.trades.beforeApprove = func() {
		arrived.Done()
		arrived.Wait()
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []string{t1.ID, t2.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.svc.Resolve(context.Background(), id, seller, DecisionApprove)
		}(i, id)
	}
	wg.Wait()

	var approved, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, conflicts)

	statuses := []model.TradeStatus{f.store.trade(t1.ID).Status, f.store.trade(t2.ID).Status}
	assert.ElementsMatch(t, []model.TradeStatus{model.TradeStatusApproved, model.TradeStatusPending}, statuses)
	assert.Equal(t, model.ProductStatusSold, f.store.product(target.ID).Status)

	// exactly one of the offered products went with the winning trade
	soldOffers := 0
	for _, id := range []string{offerA.ID, offerB.ID} {
		if p := f.store.product(id); p.IsSold() {
			soldOffers++
		}
	}
	assert.Equal(t, 1, soldOffers)
}

func TestTradePropose(t *testing.T) {
	ctx := context.Background()
	f := newTradeFixture(t)
	mine := createProduct(t, f.products, buyer, "Scooter", "150")
	theirs := createProduct(t, f.products, seller, "Bike", "200")
	alsoMine := createProduct(t, f.products, buyer, "Helmet", "20")
	sold := createProduct(t, f.products, seller, "Lock", "10")
	_, err := f.products.MarkSold(ctx, sold.ID, seller)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   ProposeInput
		want error
	}{
		{"offered missing", ProposeInput{OfferedProductID: "nope", RequestedProductID: theirs.ID}, ErrNotFound},
		{"requested missing", ProposeInput{OfferedProductID: mine.ID, RequestedProductID: "nope"}, ErrNotFound},
		{"offering someone else's product", ProposeInput{OfferedProductID: theirs.ID, RequestedProductID: mine.ID}, ErrForbidden},
		{"self trade", ProposeInput{OfferedProductID: mine.ID, RequestedProductID: alsoMine.ID}, ErrValidation},
		{"requested already sold", ProposeInput{OfferedProductID: mine.ID, RequestedProductID: sold.ID}, ErrConflict},
		{"blank offered", ProposeInput{RequestedProductID: theirs.ID}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Propose(ctx, buyer, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// duplicates are allowed
	f.propose(t, buyer, mine.ID, theirs.ID)
	f.propose(t, buyer, mine.ID, theirs.ID)
}

func TestTradeListAndGet(t *testing.T) {
	ctx := context.Background()
	f := newTradeFixture(t)
	p1 := createProduct(t, f.products, seller, "Bike", "200")
	p2 := createProduct(t, f.products, buyer, "Scooter", "150")
	first := f.propose(t, buyer, p2.ID, p1.ID)
	second := f.propose(t, buyer, p2.ID, p1.ID)

	for _, actor := range []authz.Identity{seller, buyer} {
		list, err := f.svc.ListFor(ctx, actor)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID, "newest first")
		assert.Equal(t, first.ID, list[1].ID)
	}

	list, err := f.svc.ListFor(ctx, authz.Identity{UserID: "stranger"})
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := f.svc.Get(ctx, first.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = f.svc.Get(ctx, first.ID, authz.Identity{UserID: "stranger"})
	assert.ErrorIs(t, err, ErrForbidden)
}
