package services

import (
	"context"
	"fmt"
	"html"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/sokoconnect/soko-backend/internal/ussd"
)

var (
	voiceServiceInstance *VoiceService
	voiceServiceOnce     sync.Once
)

// SetVoiceService stores the singleton voice service instance
func SetVoiceService(v *VoiceService) {
	voiceServiceOnce.Do(func() {
		voiceServiceInstance = v
	})
}

// GetVoiceService returns the singleton voice service instance
func GetVoiceService() *VoiceService {
	return voiceServiceInstance
}

// quickPick is one of the voice-shopping catalog entries. Voice keeps a
// short fixed menu because spoken lists longer than four items lose callers.
type quickPick struct {
	ProductID string
	NameEN    string
	NameSW    string
	Price     int64
}

var voiceQuickPicks = []quickPick{
	{ProductID: "001", NameEN: "Coca Cola", NameSW: "Coca Cola", Price: 1500},
	{ProductID: "002", NameEN: "Bread", NameSW: "Mkate", Price: 2000},
	{ProductID: "003", NameEN: "Milk", NameSW: "Maziwa", Price: 3000},
	{ProductID: "004", NameEN: "Rice", NameSW: "Mchele", Price: 8000},
}

// VoiceService initiates outbound shopping calls and renders the TwiML that
// drives them. The call webhook flow is: /voice/shop-lang (language pick)
// then /voice/shop (quick-pick shopping loop).
// callPlacer is the slice of the Twilio client voice shopping needs
type callPlacer interface {
	StartCall(to, callbackURL string) error
}

type VoiceService struct {
	twilio      callPlacer
	marketplace *MarketplaceService
	sms         *SMSService
	publicHost  string
}

// NewVoiceService wires voice shopping to the Twilio client, the marketplace
// and the SMS channel used for call instructions. PUBLIC_HOST must be the
// externally reachable hostname so Twilio can call the webhooks back.
func NewVoiceService(twilio *TwilioService, marketplace *MarketplaceService, sms *SMSService) *VoiceService {
	host := os.Getenv("PUBLIC_HOST")
	if host == "" {
		host = "localhost:8080"
		log.Println("⚠️ PUBLIC_HOST not set, voice callbacks will use localhost")
	}
	v := &VoiceService{marketplace: marketplace, sms: sms, publicHost: host}
	if twilio != nil {
		v.twilio = twilio
	}
	return v
}

// BaseURL is the externally reachable root for webhook callbacks
func (v *VoiceService) BaseURL() string {
	return "https://" + v.publicHost
}

// StartShoppingCall places the outbound call that walks the user through
// voice shopping, then texts the caller what to expect. The returned message
// is shown on the USSD screen.
func (v *VoiceService) StartShoppingCall(ctx context.Context, phone string, loc ussd.Locale) (string, error) {
	callbackURL := v.BaseURL() + "/voice/shop-lang"
	log.Printf("[Voice] Initiating shopping call to %s (callback %s)", phone, callbackURL)

	if v.twilio == nil {
		return "", fmt.Errorf("voice calling not configured")
	}
	if err := v.twilio.StartCall(phone, callbackURL); err != nil {
		return "", err
	}
	if v.sms != nil {
		if err := v.sms.SendVoiceInstructions(phone, loc); err != nil {
			log.Printf("❌ [Voice] Instruction SMS to %s failed: %v", phone, err)
		}
	}
	return fmt.Sprintf("Voice shopping call initiated to %s. You will receive a call shortly. Choose your language then follow voice prompts to shop.", phone), nil
}

// LanguagePromptTwiML asks the caller to pick a language; the digit comes
// back to /voice/shop-lang
func (v *VoiceService) LanguagePromptTwiML() string {
	action := v.BaseURL() + "/voice/shop-lang"
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString("<Response>")
	sb.WriteString(say("Choose language for shopping. Press 1 for English. Press 2 for Swahili. Chagua lugha ya ununuzi. Bonyeza 1 kwa Kiingereza. Bonyeza 2 kwa Kiswahili."))
	gather(&sb, action, say("Press 1 for English. Press 2 for Swahili."))
	sb.WriteString(say("No language selected. Ending call."))
	sb.WriteString("<Hangup/></Response>")
	return sb.String()
}

// LanguageRedirectTwiML routes the picked language into the shopping loop
func (v *VoiceService) LanguageRedirectTwiML(digit string) string {
	lang := ussd.LocaleEnglish
	if digit == "2" {
		lang = ussd.LocaleSwahili
	}
	shopURL := fmt.Sprintf("%s/voice/shop?lang=%s", v.BaseURL(), lang)
	return xmlHeader + "<Response><Redirect>" + html.EscapeString(shopURL) + "</Redirect></Response>"
}

// ShopTwiML runs one step of the voice shopping loop. An empty digit plays
// the menu; 1-4 add a quick-pick item, 5 checks out, 0 hangs up.
func (v *VoiceService) ShopTwiML(ctx context.Context, phone, digit string, loc ussd.Locale) string {
	shopURL := fmt.Sprintf("%s/voice/shop?lang=%s", v.BaseURL(), loc)
	sw := loc == ussd.LocaleSwahili

	menu := v.quickPickPrompt(loc)
	noInput := "No input received. Ending call."
	if sw {
		noInput = "Hakuna ingizo. Kumaliza simu."
	}

	loop := func(lead string) string {
		var sb strings.Builder
		sb.WriteString(xmlHeader)
		sb.WriteString("<Response>")
		if lead != "" {
			sb.WriteString(say(lead))
		}
		gather(&sb, shopURL, say(menu))
		sb.WriteString(say(noInput))
		sb.WriteString("<Hangup/></Response>")
		return sb.String()
	}
	hangup := func(line string) string {
		return xmlHeader + "<Response>" + say(line) + "<Hangup/></Response>"
	}

	switch digit {
	case "":
		welcome := "Welcome to Voice Shopping!"
		if sw {
			welcome = "Karibu kwenye Ununuzi wa Sauti!"
		}
		return loop(welcome)

	case "1", "2", "3", "4":
		pick := voiceQuickPicks[int(digit[0]-'1')]
		update := v.marketplace.AddToCart(ctx, phone, pick.ProductID, 1)
		if !update.OK {
			return loop(update.Message)
		}
		name := pick.NameEN
		added := fmt.Sprintf("Added %s to cart.", name)
		if sw {
			name = pick.NameSW
			added = fmt.Sprintf("Imeongezwa %s kwenye kikapu.", name)
		}
		return loop(added)

	case "5":
		cart := v.marketplace.Cart(phone)
		if len(cart.Items) == 0 {
			if sw {
				return hangup("Kikapu chako ni tupu. Tafadhali ongeza bidhaa kwanza. Kumaliza simu.")
			}
			return hangup("Your cart is empty. Please add items first. Ending call.")
		}
		update := v.marketplace.Checkout(ctx, phone)
		if !update.OK {
			return hangup(update.Message)
		}
		line := fmt.Sprintf("Processing your order of %s shillings. You will receive a payment confirmation shortly. Thank you for shopping!", ussd.FormatAmount(cart.Total))
		if sw {
			line = fmt.Sprintf("Kuchakata agizo lako la shilingi %s. Utapokea uthibitisho wa malipo hivi karibuni. Asante kwa ununuzi!", ussd.FormatAmount(cart.Total))
		}
		return hangup(line)

	case "0":
		if sw {
			return hangup("Asante kwa kupiga simu. Bidhaa zako zimebaki kwenye kikapu kwa malipo ya USSD. Kwaheri!")
		}
		return hangup("Thanks for calling. Your items remain in cart for USSD checkout. Goodbye!")

	default:
		invalid := "Invalid selection."
		if sw {
			invalid = "Chaguo batili."
		}
		return loop(invalid)
	}
}

func (v *VoiceService) quickPickPrompt(loc ussd.Locale) string {
	sw := loc == ussd.LocaleSwahili
	var parts []string
	for i, pick := range voiceQuickPicks {
		if sw {
			parts = append(parts, fmt.Sprintf("Bonyeza %d kwa %s shilingi %d.", i+1, pick.NameSW, pick.Price))
		} else {
			parts = append(parts, fmt.Sprintf("Press %d for %s %d shillings.", i+1, pick.NameEN, pick.Price))
		}
	}
	if sw {
		parts = append(parts, "Bonyeza 5 kulipa. Bonyeza 0 kumaliza.")
	} else {
		parts = append(parts, "Press 5 to checkout. Press 0 to finish.")
	}
	return strings.Join(parts, " ")
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

func say(text string) string {
	return "<Say>" + html.EscapeString(text) + "</Say>"
}

func gather(sb *strings.Builder, action, inner string) {
	fmt.Fprintf(sb, `<Gather input="dtmf" numDigits="1" timeout="20" action="%s">%s</Gather>`, html.EscapeString(action), inner)
}
