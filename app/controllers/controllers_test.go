package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/orbitkey/payrelay/internal/pkg/fulfillment"
	"github.com/orbitkey/payrelay/internal/pkg/payments"
	"github.com/orbitkey/payrelay/internal/pkg/router"
)

// fakeStripe serves scripted provider responses to the handlers under test.
type fakeStripe struct {
	mu sync.Mutex

	price    *stripe.Price
	priceErr error

	createdParams *stripe.CheckoutSessionParams
	createResp    *stripe.CheckoutSession
	createErr     error

	session  *stripe.CheckoutSession
	getErr   error
	getCalls int
}

func (f *fakeStripe) FirstActivePrice(ctx context.Context, productID string) (*stripe.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return f.price, nil
}

func (f *fakeStripe) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdParams = params
	return f.createResp, f.createErr
}

func (f *fakeStripe) GetSession(ctx context.Context, sessionRef string) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.session, nil
}

func (f *fakeStripe) created() *stripe.CheckoutSessionParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createdParams
}

func (f *fakeStripe) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

type fakePeer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakePeer) StoreKey(ctx context.Context, key, tier, sessionRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakePeer) stores() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRoles struct {
	mu     sync.Mutex
	member *discordgo.Member
	err    error
	calls  int
}

func (f *fakeRoles) GrantRole(ctx context.Context, name string) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.member, f.err
}

func (f *fakeRoles) set(member *discordgo.Member, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.member = member
	f.err = err
}

// fakeNotifier records embeds thread-safely; webhook notifications arrive on
// background goroutines.
type fakeNotifier struct {
	mu     sync.Mutex
	embeds []*discordgo.MessageEmbed
}

func (f *fakeNotifier) SendChannelEmbed(ctx context.Context, embed *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, embed)
	return nil
}

func (f *fakeNotifier) Send(ctx context.Context, embed *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, embed)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.embeds)
}

func (f *fakeNotifier) waitForEmbeds(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f.count() >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return f.count() >= n
}

type testEnv struct {
	app     *fiber.App
	api     *fakeStripe
	peer    *fakePeer
	roles   *fakeRoles
	channel *fakeNotifier
	monitor *fakeNotifier
}

func newTestApp() *testEnv {
	api := &fakeStripe{}
	peer := &fakePeer{}
	roles := &fakeRoles{member: &discordgo.Member{User: &discordgo.User{ID: "42", Username: "alpha"}}}
	channel := &fakeNotifier{}
	monitor := &fakeNotifier{}

	Setup(Deps{
		API:        api,
		Poller:     payments.NewPoller(api, 4, time.Millisecond),
		FastPoller: payments.NewPoller(api, 4, time.Millisecond),
		Dispatcher: &fulfillment.Dispatcher{
			Ledger:  fulfillment.NewMemoryLedger(time.Minute),
			Peer:    peer,
			Roles:   roles,
			Channel: channel,
			Monitor: monitor,
		},
	})

	app := fiber.New()
	router.InstallRouter(app)

	return &testEnv{app: app, api: api, peer: peer, roles: roles, channel: channel, monitor: monitor}
}

func paidTestSession(tier string) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:                 "cs_paid",
		PaymentStatus:      stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:        1500,
		Currency:           stripe.Currency("eur"),
		PaymentMethodTypes: []string{"card"},
		Metadata:           map[string]string{"tier": tier, "endpoint": "/" + tier},
		CustomerDetails:    &stripe.CheckoutSessionCustomerDetails{Name: "Jordan"},
	}
}

func jsonRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
