package ussd

import (
	"fmt"
	"strings"

	"github.com/sokoconnect/soko-backend/internal/models"
)

// Locale is a menu language tag
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleSwahili Locale = "sw"

	// DefaultLocale is used whenever a session has no (or an unsupported)
	// language; rendering is total, it never fails on a locale
	DefaultLocale = LocaleEnglish
)

// ItemsPerPage is the page size for product listings. The two options after
// the last item slot are reused positionally on every page:
// ItemsPerPage+1 = next page, ItemsPerPage+2 = previous page.
const (
	ItemsPerPage   = 5
	NextPageOption = ItemsPerPage + 1
	PrevPageOption = ItemsPerPage + 2
)

// messages holds per-locale copy for single-line responses
type messages struct {
	Invalid        string
	Goodbye        string
	NoOrders       string
	RecentOrders   string
	Items          string
	Unavailable    string
	RemovalNotice  string
	CartCleared    string
	MinAmount      string
	EnterSearch    string
	EnterRecipient string
	EnterAmount    string
	EnterTopUp     string
	NoResults      string
	NoTransactions string
	RecentTx       string
	Sent           string
	Received       string
	To             string
	From           string
	Balance        string
	Added          string
	NewBalance     string
	Page           string
}

var localeMessages = map[Locale]messages{
	LocaleEnglish: {
		Invalid:        "Invalid selection. Please try again.",
		Goodbye:        "Thank you for using Soko Connect!",
		NoOrders:       "No previous orders found.",
		RecentOrders:   "Recent Orders:",
		Items:          "items",
		Unavailable:    "Service temporarily unavailable. Please try again.",
		RemovalNotice:  "Item removal not supported in USSD. Use SMS: \"clear\"",
		CartCleared:    "Cart cleared successfully.",
		MinAmount:      "Invalid amount. Minimum is 100 TZS.",
		EnterSearch:    "Enter product name to search:",
		EnterRecipient: "Enter recipient number:\n(Format: +255683859574)",
		EnterAmount:    "Enter amount to send:",
		EnterTopUp:     "Enter amount to add:",
		NoResults:      "No products found for %q. Try different keywords.",
		NoTransactions: "No recent transactions found.",
		RecentTx:       "Recent Transactions:",
		Sent:           "Sent",
		Received:       "Received",
		To:             "to",
		From:           "from",
		Balance:        "Your balance",
		Added:          "Added",
		NewBalance:     "New balance",
		Page:           "Page",
	},
	LocaleSwahili: {
		Invalid:        "Chaguo batili. Jaribu tena.",
		Goodbye:        "Asante kwa kutumia Soko Connect!",
		NoOrders:       "Hakuna maagizo ya awali.",
		RecentOrders:   "Maagizo ya Hivi Karibuni:",
		Items:          "bidhaa",
		Unavailable:    "Huduma haipatikani kwa sasa. Jaribu tena.",
		RemovalNotice:  "Kuondoa bidhaa hakutumiki kwa USSD. Tumia SMS: \"clear\"",
		CartCleared:    "Kikapu kimesafishwa.",
		MinAmount:      "Kiasi batili. Kiwango cha chini ni TZS 100.",
		EnterSearch:    "Andika jina la bidhaa kutafuta:",
		EnterRecipient: "Andika namba ya mpokeaji:\n(Mfano: +255683859574)",
		EnterAmount:    "Andika kiasi cha kutuma:",
		EnterTopUp:     "Andika kiasi cha kuongeza:",
		NoResults:      "Hakuna bidhaa kwa %q. Jaribu maneno mengine.",
		NoTransactions: "Hakuna miamala ya hivi karibuni.",
		RecentTx:       "Miamala ya Hivi Karibuni:",
		Sent:           "Umetuma",
		Received:       "Umepokea",
		To:             "kwa",
		From:           "kutoka",
		Balance:        "Salio lako",
		Added:          "Umeongeza",
		NewBalance:     "Salio jipya",
		Page:           "Ukurasa",
	},
}

// msg returns the copy table for a locale, falling back to the default
func msg(loc Locale) messages {
	if m, ok := localeMessages[loc]; ok {
		return m
	}
	return localeMessages[DefaultLocale]
}

// LanguageMenu is the entry prompt; it is deliberately bilingual
func LanguageMenu() Reply {
	return Con("Choose Language / Chagua Lugha\n1. English\n2. Kiswahili")
}

// MainMenu renders the top-level menu
func MainMenu(loc Locale) Reply {
	if loc == LocaleSwahili {
		return Con("Karibu Soko Connect\n1. Ununua Bidhaa\n2. Angalia Kikapu\n3. Pochi\n4. Historia ya Maagizo\n5. Piga Simu Kununua\n0. Toka")
	}
	return Con("Welcome to Soko Connect\n1. Shop Products\n2. View Cart\n3. Wallet\n4. Order History\n5. Call to Shop\n0. Exit")
}

// ShopMenu renders the shop submenu
func ShopMenu(loc Locale) Reply {
	if loc == LocaleSwahili {
		return Con("Menyu ya Ununuzi\n1. Angalia Bidhaa Zote\n2. Tafuta Bidhaa\n3. Angalia Makundi\n4. Rudi Menyu Kuu")
	}
	return Con("Shop Menu\n1. Browse All Products\n2. Search Products\n3. View Categories\n4. Back to Main Menu")
}

// WalletMenu renders the wallet submenu
func WalletMenu(loc Locale) Reply {
	if loc == LocaleSwahili {
		return Con("Menyu ya Pochi\n1. Angalia Salio\n2. Tuma Pesa\n3. Historia ya Miamala\n4. Ongeza Pesa (Jaribio)\n0. Rudi Menyu Kuu")
	}
	return Con("Wallet Menu\n1. Check Balance\n2. Send Money\n3. Transaction History\n4. Add Money (Demo)\n0. Back to Main Menu")
}

// ProductListMenu renders one page of a listing. Option numbers map
// positionally onto the page slice; next/previous only appear when valid.
func ProductListMenu(products []*models.Product, page int, loc Locale) Reply {
	m := msg(loc)
	start := (page - 1) * ItemsPerPage
	end := start + ItemsPerPage
	if end > len(products) {
		end = len(products)
	}

	title := "Products"
	next := "Next Page"
	prev := "Previous Page"
	back := "Back to Shop Menu"
	if loc == LocaleSwahili {
		title, next, prev, back = "Bidhaa", "Ukurasa Unaofuata", "Ukurasa Uliopita", "Rudi Menyu ya Ununuzi"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s %d):\n", title, m.Page, page)
	for i, p := range products[start:end] {
		fmt.Fprintf(&sb, "%d. %s - %s TZS/%s\n", i+1, p.Name, FormatAmount(p.Price), p.Unit)
	}
	if end < len(products) {
		fmt.Fprintf(&sb, "%d. %s\n", NextPageOption, next)
	}
	if page > 1 {
		fmt.Fprintf(&sb, "%d. %s\n", PrevPageOption, prev)
	}
	fmt.Fprintf(&sb, "0. %s", back)
	return Con(sb.String())
}

// CartMenu renders the cart. Item slots are display-only; the two options
// after them are checkout and clear, recomputed from the current item count.
func CartMenu(cart models.Cart, loc Locale) Reply {
	empty := "Your cart is empty"
	goShopping := "Go Shopping"
	backMain := "Back to Main Menu"
	cartTitle := "Your Cart:"
	total := "Total:"
	checkout := "Checkout"
	clearCart := "Clear Cart"
	if loc == LocaleSwahili {
		empty, goShopping, backMain = "Kikapu chako ni tupu", "Nenda Ununuzi", "Rudi Menyu Kuu"
		cartTitle, total, checkout, clearCart = "Kikapu Chako:", "Jumla:", "Lipa", "Safisha Kikapu"
	}

	if len(cart.Items) == 0 {
		return Con(fmt.Sprintf("%s\n1. %s\n0. %s", empty, goShopping, backMain))
	}

	var sb strings.Builder
	sb.WriteString(cartTitle + "\n")
	for i, item := range cart.Items {
		fmt.Fprintf(&sb, "%d. %d %s(s) %s - %s TZS\n", i+1, item.Quantity, item.Unit, item.Name, FormatAmount(item.Subtotal))
	}
	fmt.Fprintf(&sb, "\n%s %s TZS\n", total, FormatAmount(cart.Total))
	fmt.Fprintf(&sb, "%d. %s\n", len(cart.Items)+1, checkout)
	fmt.Fprintf(&sb, "%d. %s\n", len(cart.Items)+2, clearCart)
	fmt.Fprintf(&sb, "0. %s", backMain)
	return Con(sb.String())
}

// AfterAddMenu renders the prompt shown after a successful add-to-cart
func AfterAddMenu(confirmation string, loc Locale) Reply {
	if loc == LocaleSwahili {
		return Con(confirmation + "\n\n1. Endelea Kununua\n2. Angalia Kikapu\n3. Lipa\n0. Menyu Kuu")
	}
	return Con(confirmation + "\n\n1. Continue Shopping\n2. View Cart\n3. Checkout\n0. Main Menu")
}

// CategoriesMenu renders the numbered category picker
func CategoriesMenu(categories []string, loc Locale) Reply {
	title := "Categories:"
	back := "Back to Shop Menu"
	if loc == LocaleSwahili {
		title, back = "Makundi:", "Rudi Menyu ya Ununuzi"
	}
	var sb strings.Builder
	sb.WriteString(title + "\n")
	for i, cat := range categories {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, titleCase(cat))
	}
	fmt.Fprintf(&sb, "0. %s", back)
	return Con(sb.String())
}

// InvalidSelection is the shared terminal for unrecognized input
func InvalidSelection(loc Locale) Reply {
	return End(msg(loc).Invalid)
}

// ServiceUnavailable is the degraded terminal used when a transition fails
// internally; the transport always gets a well-formed reply
func ServiceUnavailable(loc Locale) Reply {
	return End(msg(loc).Unavailable)
}

// FormatAmount renders a TZS amount with thousands separators
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := fmt.Sprintf("%d", amount)
	if len(s) > 3 {
		var parts []string
		for len(s) > 3 {
			parts = append([]string{s[len(s)-3:]}, parts...)
			s = s[:len(s)-3]
		}
		s = s + "," + strings.Join(parts, ",")
	}
	if neg {
		return "-" + s
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
