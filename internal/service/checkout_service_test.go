package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestCheckoutService_EnterEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.Enter(context.Background(), "s1", domain.Identity{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutService_EnterPrefillsFromIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.AddItem(ctx, "s1", product("p1", "12.50"), 2)
	require.NoError(t, err)

	form, err := f.checkout.Enter(ctx, "s1", domain.Identity{Token: "tok", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", form.Customer.Name)
	assert.Equal(t, "ada@example.com", form.Customer.Email)
	assert.Equal(t, "UK", form.Customer.Country)
	assert.Equal(t, "25.00", pricing.Format(form.Pricing.Subtotal))
	assert.Empty(t, form.DraftID)

	anon, err := f.checkout.Enter(ctx, "s1", domain.Identity{Name: "Ignored"})
	require.NoError(t, err)
	assert.Empty(t, anon.Customer.Name)
}

func TestCheckoutService_EnterResumesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.withDraft(t, "s1")

	form, err := f.checkout.Enter(ctx, "s1", domain.Identity{Token: "tok", Name: "Someone Else"})
	require.NoError(t, err)
	assert.Equal(t, draft.ID, form.DraftID)
	assert.Equal(t, "Ada Lovelace", form.Customer.Name)
	assert.False(t, form.CartChanged)
}

func TestCheckoutService_EnterFlagsCartChangedSinceDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withDraft(t, "s1")

	_, err := f.cart.UpdateQuantity(ctx, "s1", "p1", 3)
	require.NoError(t, err)

	form, err := f.checkout.Enter(ctx, "s1", domain.Identity{})
	require.NoError(t, err)
	assert.True(t, form.CartChanged)
	assert.Equal(t, "60.00", pricing.Format(form.Pricing.Subtotal))
}

func TestCheckoutService_LogsCarryTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Service: "storefront", Level: "info", Output: &buf})
	t.Cleanup(func() { slog.SetDefault(logger.Nop()) })

	store := NewSessionStore(repository.NewMemoryRepository(), log)
	cart := NewCartService(store, pricing.DefaultPolicy(), log)
	checkout := NewCheckoutService(store, pricing.DefaultPolicy(), "UK", log)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	_, err = cart.AddItem(ctx, "s1", product("p1", "10.00"), 1)
	require.NoError(t, err)
	_, err = checkout.Submit(ctx, "s1", validDetails())
	require.NoError(t, err)

	var record map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var r map[string]any
		require.NoError(t, json.Unmarshal(line, &r))
		if r["msg"] == "checkout draft created" {
			record = r
		}
	}
	require.NotNil(t, record)
	assert.Equal(t, traceID.String(), record["trace_id"])
	assert.Equal(t, spanID.String(), record["span_id"])
}

func TestCheckoutService_SubmitListsAllMissingFieldsInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.AddItem(ctx, "s1", product("p1", "10.00"), 1)
	require.NoError(t, err)

	_, err = f.checkout.Submit(ctx, "s1", domain.CustomerDetails{
		Email: "ada@example.com",
		Phone: "   ",
		City:  "London",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	var fields []string
	for _, fe := range verr.Fields {
		fields = append(fields, fe.Field)
		assert.Contains(t, fe.Message, "is required")
	}
	assert.Equal(t, []string{"name", "phone", "street", "postcode"}, fields)

	_, err = f.checkout.Draft(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestCheckoutService_SubmitEmptyForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.AddItem(ctx, "s1", product("p1", "10.00"), 1)
	require.NoError(t, err)

	_, err = f.checkout.Submit(ctx, "s1", domain.CustomerDetails{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 6)
	assert.Equal(t, "name", verr.Fields[0].Field)
	assert.Equal(t, "postcode", verr.Fields[5].Field)
	assert.Equal(t, "validation failed: name, email, phone, street, city, postcode", verr.Error())
}

func TestCheckoutService_SubmitEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.Submit(context.Background(), "s1", validDetails())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutService_SubmitSnapshotsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.checkout.newID = func() string { return "draft-1" }

	_, err := f.cart.AddItem(ctx, "s1", product("p1", "20.00"), 2)
	require.NoError(t, err)

	details := validDetails()
	details.Name = "  Ada Lovelace  "
	details.Country = "FR"
	draft, err := f.checkout.Submit(ctx, "s1", details)
	require.NoError(t, err)

	assert.Equal(t, "draft-1", draft.ID)
	assert.Equal(t, "Ada Lovelace", draft.Customer.Name)
	assert.Equal(t, "UK", draft.Customer.Country)
	assert.Equal(t, "40.00", pricing.Format(draft.Pricing.Subtotal))
	assert.Equal(t, "5.00", pricing.Format(draft.Pricing.ShippingFee))
	assert.Equal(t, "8.00", pricing.Format(draft.Pricing.Tax))
	assert.Equal(t, "53.00", pricing.Format(draft.Pricing.Total))

	// Later cart edits do not leak into the stored draft.
	_, err = f.cart.AddItem(ctx, "s1", product("p2", "99.00"), 1)
	require.NoError(t, err)

	stored, err := f.checkout.Draft(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, stored.Cart.Items, 1)
	assert.Equal(t, 2, stored.Cart.Items[0].Quantity)
	assert.True(t, stored.Pricing.Total.Equal(draft.Pricing.Total))
}

func TestCheckoutService_SubmitPersistFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.AddItem(ctx, "s1", product("p1", "10.00"), 1)
	require.NoError(t, err)

	f.repo.fail(nil, errStorage, nil)
	_, err = f.checkout.Submit(ctx, "s1", validDetails())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, repository.SlotDraft, perr.Slot)

	f.repo.fail(nil, nil, nil)
	_, err = f.checkout.Draft(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestCheckoutService_MalformedDraftMeansNoDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Put(ctx, "s1", repository.SlotDraft, []byte("garbage")))

	_, err := f.checkout.Draft(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoDraft)
}
