package ussd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sokoconnect/soko-backend/internal/models"
)

func TestReplyRenderPrefixes(t *testing.T) {
	assert.Equal(t, "CON hello", Con("hello").Render())
	assert.Equal(t, "END bye", End("bye").Render())
	assert.False(t, Con("hello").Terminal())
	assert.True(t, End("bye").Terminal())
}

func TestReplyRenderTruncatesLongBody(t *testing.T) {
	long := strings.Repeat("a", MaxResponseLen+40)
	out := Con(long).Render()
	assert.Equal(t, "CON "+strings.Repeat("a", MaxResponseLen), out)
}

func TestReplyRenderKeepsFullProductPage(t *testing.T) {
	// Page 1 of the demo catalog with a next-page option is the longest
	// everyday screen; every option line must survive rendering.
	products := []*models.Product{
		{ProductID: "001", Name: "Coca Cola", Price: 1500, Unit: "bottle"},
		{ProductID: "002", Name: "Bread", Price: 2000, Unit: "loaf"},
		{ProductID: "003", Name: "Milk 1L", Price: 3000, Unit: "carton"},
		{ProductID: "004", Name: "Rice 2kg", Price: 8000, Unit: "bag"},
		{ProductID: "005", Name: "Cooking Oil", Price: 5500, Unit: "bottle"},
		{ProductID: "006", Name: "Sugar 1kg", Price: 2500, Unit: "bag"},
		{ProductID: "007", Name: "Tea Bags", Price: 1800, Unit: "box"},
		{ProductID: "008", Name: "Soap", Price: 1200, Unit: "bar"},
	}

	menu := ProductListMenu(products, 1, LocaleEnglish)
	out := menu.Render()
	assert.Equal(t, "CON "+menu.Text, out)
	assert.Contains(t, out, "6. Next Page")
	assert.True(t, strings.HasSuffix(out, "0. Back to Shop Menu"))
}

func TestReplyRenderTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ช", MaxResponseLen+5)
	out := End(long).Render()
	body := strings.TrimPrefix(out, "END ")
	assert.Equal(t, MaxResponseLen, len([]rune(body)))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(0))
	assert.Equal(t, "999", FormatAmount(999))
	assert.Equal(t, "1,500", FormatAmount(1500))
	assert.Equal(t, "10,000", FormatAmount(10000))
	assert.Equal(t, "1,234,567", FormatAmount(1234567))
	assert.Equal(t, "-2,500", FormatAmount(-2500))
}

func TestMsgFallsBackToDefaultLocale(t *testing.T) {
	unknown := msg(Locale("fr"))
	assert.Equal(t, localeMessages[DefaultLocale].Invalid, unknown.Invalid)
}

func TestProductListMenuPaging(t *testing.T) {
	products := make([]*models.Product, 7)
	for i := range products {
		products[i] = &models.Product{
			ProductID: "00" + string(rune('1'+i)),
			Name:      "P" + string(rune('1'+i)),
			Price:     1000,
			Unit:      "piece",
		}
	}

	first := ProductListMenu(products, 1, LocaleEnglish)
	assert.Contains(t, first.Text, "Products (Page 1):")
	assert.Contains(t, first.Text, "5. P5")
	assert.NotContains(t, first.Text, "P6")
	assert.Contains(t, first.Text, "6. Next Page")
	assert.NotContains(t, first.Text, "7. Previous Page")

	second := ProductListMenu(products, 2, LocaleEnglish)
	assert.Contains(t, second.Text, "1. P6")
	assert.Contains(t, second.Text, "2. P7")
	assert.NotContains(t, second.Text, "6. Next Page")
	assert.Contains(t, second.Text, "7. Previous Page")
}

func TestCartMenuEmpty(t *testing.T) {
	out := CartMenu(models.Cart{}, LocaleEnglish)
	assert.Equal(t, "CON Your cart is empty\n1. Go Shopping\n0. Back to Main Menu", out.Render())
}

func TestCartMenuPositionalOptions(t *testing.T) {
	cart := models.Cart{
		Items: []models.CartItem{
			{Name: "Coca Cola", Unit: "piece", Quantity: 2, Subtotal: 3000},
			{Name: "Bread", Unit: "loaf", Quantity: 1, Subtotal: 2000},
			{Name: "Milk", Unit: "liter", Quantity: 1, Subtotal: 3000},
		},
		Total: 8000,
	}
	out := CartMenu(cart, LocaleEnglish).Text
	assert.Contains(t, out, "1. 2 piece(s) Coca Cola - 3,000 TZS")
	assert.Contains(t, out, "Total: 8,000 TZS")
	assert.Contains(t, out, "4. Checkout")
	assert.Contains(t, out, "5. Clear Cart")
	assert.Contains(t, out, "0. Back to Main Menu")
}

func TestCategoriesMenuTitleCases(t *testing.T) {
	out := CategoriesMenu([]string{"grocery", "household"}, LocaleEnglish).Text
	assert.Contains(t, out, "1. Grocery")
	assert.Contains(t, out, "2. Household")
}

func TestSwahiliMainMenu(t *testing.T) {
	out := MainMenu(LocaleSwahili).Text
	assert.Contains(t, out, "Karibu Soko Connect")
	assert.Contains(t, out, "3. Pochi")
}
