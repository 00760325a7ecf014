package ussd

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/sokoconnect/soko-backend/internal/models"
)

// MinTransferAmount is the smallest wallet movement the menus accept, in TZS
const MinTransferAmount = 100

const voiceUnavailableMsg = "Voice call service temporarily unavailable. Please use USSD shopping instead."

const lockStripes = 64

// Engine is the USSD state machine. Routing is dual-signal: fixed-path rules
// (depth + keystroke prefix, usable even when the stored session was lost)
// are evaluated before stored-state rules (needed for screens reached through
// dynamic data, where depth varies with pagination). A rule that matches its
// position but cannot own the selection declines, letting a lower-priority
// rule claim it; only when nothing claims does the invalid-selection terminal
// fire.
type Engine struct {
	sessions SessionStore
	market   Marketplace
	payments Payments
	caller   Caller

	pathRules  []rule
	stateRules []rule

	// Per-phone striping: the transport mostly serializes requests per
	// phone, but aggregator retries and a concurrent SMS command can race
	// on the same session entry.
	locks [lockStripes]sync.Mutex
}

type request struct {
	ctx   context.Context
	phone string
	sess  *Session
	crumb Breadcrumb
	input string
}

func (r *request) locale() Locale { return r.sess.Locale }

// rule pairs a cheap positional predicate with a handler. The handler's
// second return declines the request back to lower-priority rules.
type rule struct {
	name string
	when func(*request) bool
	run  func(*request) (Reply, bool)
}

// NewEngine wires the state machine to its collaborators. caller may be nil;
// the voice option then degrades to an unavailable message.
func NewEngine(sessions SessionStore, market Marketplace, payments Payments, caller Caller) *Engine {
	e := &Engine{
		sessions: sessions,
		market:   market,
		payments: payments,
		caller:   caller,
	}

	// Fixed top-level tree. Positions are counted with the language choice
	// at keystroke 0, so depth 2 is a selection made from the screen the
	// main menu handed out, and depth 3 under 1*1 is the first product page.
	e.pathRules = []rule{
		{
			name: "shop-submenu",
			when: func(r *request) bool { return r.crumb.Depth() == 2 && r.crumb.At(0) == "1" },
			run:  e.shopSelection,
		},
		{
			name: "cart-screen",
			when: func(r *request) bool { return r.crumb.Depth() == 2 && r.crumb.At(0) == "2" },
			run:  e.cartSelection,
		},
		{
			name: "wallet-submenu",
			when: func(r *request) bool { return r.crumb.Depth() == 2 && r.crumb.At(0) == "3" },
			run:  e.walletSelection,
		},
		{
			name: "first-product-page",
			when: func(r *request) bool { return r.crumb.Depth() == 3 && r.crumb.HasPrefix("1", "1") },
			run:  e.productPageSelection,
		},
	}

	// Stored-state fallbacks, for screens whose depth is not fixed.
	e.stateRules = []rule{
		{name: "main", when: stateIs[Main], run: e.mainSelection},
		{name: "product-list", when: stateIs[ProductList], run: e.productPageSelection},
		{name: "cart", when: stateIs[CartView], run: e.cartSelection},
		{name: "shop", when: stateIs[Shop], run: e.shopSelection},
		{name: "wallet", when: stateIs[Wallet], run: e.walletSelection},
		{name: "after-add", when: stateIs[AfterAddToCart], run: e.afterAddSelection},
		{name: "send-money-recipient", when: stateIs[SendMoneyRecipient], run: e.captureRecipient},
		{name: "send-money-amount", when: stateIs[SendMoneyAmount], run: e.sendMoney},
		{name: "add-money", when: stateIs[AddMoneyPrompt], run: e.addMoney},
		{name: "search", when: stateIs[SearchPrompt], run: e.runSearch},
		{name: "category-pick", when: stateIs[CategoryList], run: e.categorySelection},
	}

	return e
}

func stateIs[S State](r *request) bool {
	_, ok := r.sess.State.(S)
	return ok
}

// Handle processes one inbound USSD request and returns the rendered wire
// reply. It never fails: panics and collaborator errors degrade to a
// well-formed terminal response, because the transport demands an immediate
// answer no matter what.
func (e *Engine) Handle(ctx context.Context, phone, text string) (out string) {
	mu := e.phoneLock(phone)
	mu.Lock()
	defer mu.Unlock()

	sess, created := e.sessions.GetOrCreate(phone)
	if created {
		log.Printf("[USSD] New session for %s", phone)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [USSD] Panic handling %s: %v", phone, r)
			e.sessions.Delete(phone)
			out = ServiceUnavailable(sess.Locale).Render()
		}
	}()

	crumb := ParseBreadcrumb(text)
	req := &request{
		ctx:   ctx,
		phone: phone,
		sess:  sess,
		crumb: crumb,
		input: crumb.Last(),
	}

	reply := e.route(req)

	// Terminal replies delete the session, continuations persist it.
	// Leaking a session past an END poisons the user's next dial.
	if reply.Terminal() {
		e.sessions.Delete(phone)
	} else {
		e.sessions.Touch(sess)
	}

	log.Printf("[USSD] %s state=%s depth=%d -> %s", phone, sess.State.Name(), req.crumb.Depth(), renderKind(reply))
	return reply.Render()
}

func renderKind(r Reply) string {
	if r.Terminal() {
		return "END"
	}
	return "CON"
}

func (e *Engine) route(req *request) Reply {
	// First contact always restarts at language selection, whatever the
	// stored session says.
	if req.crumb.Empty() {
		req.sess.State = LanguageSelect{}
		return LanguageMenu()
	}

	if _, ok := req.sess.State.(LanguageSelect); ok && req.crumb.Depth() == 1 {
		return e.chooseLanguage(req)
	}
	// A LanguageSelect session with a deeper breadcrumb means our state was
	// lost mid-flow (restart, sweep). Fall through and let the fixed-path
	// rules reconstruct the position from the keystroke history.

	for _, r := range e.pathRules {
		if r.when(req) {
			if reply, claimed := r.run(req); claimed {
				return reply
			}
		}
	}
	for _, r := range e.stateRules {
		if r.when(req) {
			if reply, claimed := r.run(req); claimed {
				return reply
			}
		}
	}

	log.Printf("[USSD] Unhandled input for %s: state=%s depth=%d", req.phone, req.sess.State.Name(), req.crumb.Depth())
	return InvalidSelection(req.locale())
}

func (e *Engine) chooseLanguage(req *request) Reply {
	switch req.input {
	case "1":
		req.sess.Locale = LocaleEnglish
	case "2":
		req.sess.Locale = LocaleSwahili
	default:
		return InvalidSelection(req.locale())
	}
	req.sess.State = Main{}
	return MainMenu(req.sess.Locale)
}

// mainSelection handles the top-level menu. It is keyed off the stored Main
// state rather than depth, so options that survive ambiguous prefixes (like
// the voice call) work at any breadcrumb length.
func (e *Engine) mainSelection(req *request) (Reply, bool) {
	loc := req.locale()
	m := msg(loc)

	switch req.input {
	case "1":
		req.sess.State = Shop{}
		return ShopMenu(loc), true

	case "2":
		cart := e.market.Cart(req.phone)
		req.sess.State = CartView{}
		return CartMenu(cart, loc), true

	case "3":
		req.sess.State = Wallet{}
		return WalletMenu(loc), true

	case "4":
		orders := e.market.OrderHistory(req.phone, 3)
		if len(orders) == 0 {
			return End(m.NoOrders), true
		}
		var sb strings.Builder
		sb.WriteString(m.RecentOrders + "\n")
		for _, o := range orders {
			fmt.Fprintf(&sb, "%s: %s TZS (%d %s)\n", orderRef(o), FormatAmount(o.Total), len(o.Items), m.Items)
		}
		return End(sb.String()), true

	case "5":
		if e.caller == nil {
			return End(voiceUnavailableMsg), true
		}
		message, err := e.caller.StartShoppingCall(req.ctx, req.phone, loc)
		if err != nil {
			log.Printf("❌ [USSD] Voice call error for %s: %v", req.phone, err)
			return End(voiceUnavailableMsg), true
		}
		return End(message), true

	case "0":
		return End(m.Goodbye), true

	default:
		return InvalidSelection(loc), true
	}
}

func orderRef(o *models.Order) string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.OrderID
}

// shopSelection serves both the depth-2 path rule and the Shop state rule.
// Out-of-domain selections are only claimed when the session really is on
// the shop screen; otherwise they fall through (a Main-state session at
// depth 2 shares this prefix).
func (e *Engine) shopSelection(req *request) (Reply, bool) {
	loc := req.locale()

	switch req.input {
	case "1":
		products, err := e.market.Products(req.ctx)
		if err != nil {
			log.Printf("❌ [USSD] Product fetch failed for %s: %v", req.phone, err)
			return ServiceUnavailable(loc), true
		}
		req.sess.State = ProductList{Products: products, Page: 1}
		return ProductListMenu(products, 1, loc), true

	case "2":
		req.sess.State = SearchPrompt{}
		return Con(msg(loc).EnterSearch), true

	case "3":
		categories, err := e.market.Categories(req.ctx)
		if err != nil {
			log.Printf("❌ [USSD] Category fetch failed for %s: %v", req.phone, err)
			return ServiceUnavailable(loc), true
		}
		req.sess.State = CategoryList{Categories: categories}
		return CategoriesMenu(categories, loc), true

	case "4":
		req.sess.State = Main{}
		return MainMenu(loc), true

	default:
		if _, onShop := req.sess.State.(Shop); onShop {
			return InvalidSelection(loc), true
		}
		return Reply{}, false
	}
}

// cartSelection handles the cart screen. Option numbers are positional:
// 1..N name items (display only), N+1 checkout, N+2 clear, 0 back. With an
// empty cart, 1 is relabeled "Go Shopping" and leads to the first product
// page.
func (e *Engine) cartSelection(req *request) (Reply, bool) {
	loc := req.locale()
	m := msg(loc)
	onCart := false
	if _, ok := req.sess.State.(CartView); ok {
		onCart = true
	}

	n, err := strconv.Atoi(req.input)
	if err != nil {
		if onCart {
			return InvalidSelection(loc), true
		}
		return Reply{}, false
	}

	cart := e.market.Cart(req.phone)

	if len(cart.Items) == 0 {
		switch n {
		case 1:
			return e.showFirstProductPage(req)
		case 0:
			req.sess.State = Main{}
			return MainMenu(loc), true
		default:
			if onCart {
				return InvalidSelection(loc), true
			}
			return Reply{}, false
		}
	}

	switch {
	case n >= 1 && n <= len(cart.Items):
		// Removal by index is deliberately unsupported on this channel
		return End(m.RemovalNotice), true

	case n == len(cart.Items)+1:
		result := e.market.Checkout(req.ctx, req.phone)
		return End(result.Message), true

	case n == len(cart.Items)+2:
		result := e.market.ClearCart(req.phone)
		if result.Message == "" {
			return End(m.CartCleared), true
		}
		return End(result.Message), true

	case n == 0:
		req.sess.State = Main{}
		return MainMenu(loc), true

	default:
		if onCart {
			return InvalidSelection(loc), true
		}
		return Reply{}, false
	}
}

// walletSelection serves the depth-2 wallet path rule and the Wallet state
// rule
func (e *Engine) walletSelection(req *request) (Reply, bool) {
	loc := req.locale()
	m := msg(loc)

	switch req.input {
	case "1":
		balance, currency := e.payments.Balance(req.phone)
		return End(fmt.Sprintf("%s: %s %s", m.Balance, FormatAmount(balance), currency)), true

	case "2":
		req.sess.State = SendMoneyRecipient{}
		return Con(m.EnterRecipient), true

	case "3":
		txs := e.payments.Transactions(req.phone, 5)
		if len(txs) == 0 {
			return End(m.NoTransactions), true
		}
		var sb strings.Builder
		sb.WriteString(m.RecentTx + "\n")
		for _, tx := range txs {
			kind, dir, other := m.Sent, m.To, tx.ToPhone
			if tx.ToPhone == req.phone {
				kind, dir, other = m.Received, m.From, tx.FromPhone
			}
			fmt.Fprintf(&sb, "%s %s TZS %s %s\n", kind, FormatAmount(tx.Amount), dir, other)
		}
		return End(sb.String()), true

	case "4":
		req.sess.State = AddMoneyPrompt{}
		return Con(m.EnterTopUp), true

	case "0":
		req.sess.State = Main{}
		return MainMenu(loc), true

	default:
		if _, onWallet := req.sess.State.(Wallet); onWallet {
			return InvalidSelection(loc), true
		}
		return Reply{}, false
	}
}

// productPageSelection handles a product listing at any depth. When the
// session still holds a snapshot it is used as-is (page numbers keep their
// meaning for the whole listing); a lost session re-fetches page 1.
func (e *Engine) productPageSelection(req *request) (Reply, bool) {
	loc := req.locale()

	var products []*models.Product
	page := 1
	if pl, ok := req.sess.State.(ProductList); ok {
		products = pl.Products
		page = pl.Page
	} else {
		fetched, err := e.market.Products(req.ctx)
		if err != nil {
			log.Printf("❌ [USSD] Product fetch failed for %s: %v", req.phone, err)
			return ServiceUnavailable(loc), true
		}
		products = fetched
		req.sess.State = ProductList{Products: products, Page: 1}
	}

	n, err := strconv.Atoi(req.input)
	if err != nil {
		return InvalidSelection(loc), true
	}

	maxItems := len(products) - (page-1)*ItemsPerPage
	if maxItems > ItemsPerPage {
		maxItems = ItemsPerPage
	}

	switch {
	case n >= 1 && n <= maxItems:
		product := products[(page-1)*ItemsPerPage+n-1]
		result := e.market.AddToCart(req.ctx, req.phone, product.ProductID, 1)
		// Stock failures keep the listing flow alive; the message says
		// what is left
		req.sess.State = AfterAddToCart{}
		return AfterAddMenu(result.Message, loc), true

	case n == NextPageOption && page*ItemsPerPage < len(products):
		req.sess.State = ProductList{Products: products, Page: page + 1}
		return ProductListMenu(products, page+1, loc), true

	case n == PrevPageOption && page > 1:
		req.sess.State = ProductList{Products: products, Page: page - 1}
		return ProductListMenu(products, page-1, loc), true

	case n == 0:
		req.sess.State = Shop{}
		return ShopMenu(loc), true

	default:
		return InvalidSelection(loc), true
	}
}

func (e *Engine) afterAddSelection(req *request) (Reply, bool) {
	loc := req.locale()

	switch req.input {
	case "1":
		return e.showFirstProductPage(req)

	case "2":
		cart := e.market.Cart(req.phone)
		req.sess.State = CartView{}
		return CartMenu(cart, loc), true

	case "3":
		result := e.market.Checkout(req.ctx, req.phone)
		return End(result.Message), true

	case "0":
		req.sess.State = Main{}
		return MainMenu(loc), true

	default:
		return InvalidSelection(loc), true
	}
}

func (e *Engine) captureRecipient(req *request) (Reply, bool) {
	req.sess.State = SendMoneyAmount{Recipient: req.input}
	return Con(msg(req.locale()).EnterAmount), true
}

func (e *Engine) sendMoney(req *request) (Reply, bool) {
	loc := req.locale()
	state := req.sess.State.(SendMoneyAmount)

	amount, err := strconv.ParseInt(req.input, 10, 64)
	if err != nil || amount < MinTransferAmount {
		// Terminal by design: the user restarts rather than looping
		return End(msg(loc).MinAmount), true
	}

	result := e.payments.Transfer(req.ctx, req.phone, state.Recipient, amount)
	return End(result.Message), true
}

func (e *Engine) addMoney(req *request) (Reply, bool) {
	loc := req.locale()
	m := msg(loc)

	amount, err := strconv.ParseInt(req.input, 10, 64)
	if err != nil || amount < MinTransferAmount {
		return End(m.MinAmount), true
	}

	newBalance := e.payments.AddMoney(req.phone, amount)
	return End(fmt.Sprintf("%s %s TZS. %s: %s TZS", m.Added, FormatAmount(amount), m.NewBalance, FormatAmount(newBalance))), true
}

func (e *Engine) runSearch(req *request) (Reply, bool) {
	loc := req.locale()
	query := req.input

	products, err := e.market.Search(req.ctx, query)
	if err != nil {
		log.Printf("❌ [USSD] Search failed for %s: %v", req.phone, err)
		return ServiceUnavailable(loc), true
	}
	if len(products) == 0 {
		return End(fmt.Sprintf(msg(loc).NoResults, query)), true
	}

	req.sess.State = ProductList{Products: products, Page: 1}
	return ProductListMenu(products, 1, loc), true
}

func (e *Engine) categorySelection(req *request) (Reply, bool) {
	loc := req.locale()
	state := req.sess.State.(CategoryList)

	n, err := strconv.Atoi(req.input)
	if err != nil {
		return InvalidSelection(loc), true
	}

	switch {
	case n == 0:
		req.sess.State = Shop{}
		return ShopMenu(loc), true

	case n >= 1 && n <= len(state.Categories):
		products, err := e.market.ProductsByCategory(req.ctx, state.Categories[n-1])
		if err != nil {
			log.Printf("❌ [USSD] Category fetch failed for %s: %v", req.phone, err)
			return ServiceUnavailable(loc), true
		}
		req.sess.State = ProductList{Products: products, Page: 1}
		return ProductListMenu(products, 1, loc), true

	default:
		return InvalidSelection(loc), true
	}
}

func (e *Engine) showFirstProductPage(req *request) (Reply, bool) {
	loc := req.locale()
	products, err := e.market.Products(req.ctx)
	if err != nil {
		log.Printf("❌ [USSD] Product fetch failed for %s: %v", req.phone, err)
		return ServiceUnavailable(loc), true
	}
	req.sess.State = ProductList{Products: products, Page: 1}
	return ProductListMenu(products, 1, loc), true
}

func (e *Engine) phoneLock(phone string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(phone))
	return &e.locks[h.Sum32()%lockStripes]
}
