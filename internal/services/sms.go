package services

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/sokoconnect/soko-backend/internal/models"
	"github.com/sokoconnect/soko-backend/internal/ussd"
)

var (
	smsServiceInstance *SMSService
	smsServiceOnce     sync.Once
)

// SetSMSService stores the singleton SMS service instance
func SetSMSService(s *SMSService) {
	smsServiceOnce.Do(func() {
		smsServiceInstance = s
	})
}

// GetSMSService returns the singleton SMS service instance
func GetSMSService() *SMSService {
	return smsServiceInstance
}

// SMSService composes localized notification copy and hands delivery to the
// underlying sender. A nil sender logs instead of sending, which keeps
// local development working without credentials.
type SMSService struct {
	sender Notifier
}

// NewSMSService wraps a delivery channel (the Twilio client in production)
func NewSMSService(sender Notifier) *SMSService {
	return &SMSService{sender: sender}
}

// SendSMS delivers one message to one recipient
func (s *SMSService) SendSMS(to, body string) error {
	if s.sender == nil {
		log.Printf("📤 [SMS] (dry-run) to %s: %.50s...", to, body)
		return nil
	}
	return s.sender.SendSMS(to, body)
}

// SendBulk delivers one message to every recipient, collecting failures
// instead of stopping at the first one. Returns how many sends succeeded.
func (s *SMSService) SendBulk(recipients []string, body string) (int, error) {
	sent := 0
	var failed []string
	for _, to := range recipients {
		if err := s.SendSMS(to, body); err != nil {
			log.Printf("❌ [SMS] Bulk send to %s failed: %v", to, err)
			failed = append(failed, to)
			continue
		}
		sent++
	}
	if len(failed) > 0 {
		return sent, fmt.Errorf("failed to deliver to %s", strings.Join(failed, ", "))
	}
	return sent, nil
}

// SendOrderConfirmation notifies the buyer that their order went through
func (s *SMSService) SendOrderConfirmation(phone string, order *models.Order, loc ussd.Locale) error {
	body := fmt.Sprintf("Order confirmed! Total: %s TZS. Items: %d. Order ID: %s. Thank you for shopping with Soko Connect!",
		ussd.FormatAmount(order.Total), len(order.Items), order.OrderNumber)
	if loc == ussd.LocaleSwahili {
		body = fmt.Sprintf("Agizo limethibitishwa! Jumla: TZS %s. Bidhaa: %d. Nambari ya Agizo: %s. Asante kwa ununuzi na Soko Connect!",
			ussd.FormatAmount(order.Total), len(order.Items), order.OrderNumber)
	}
	return s.SendSMS(phone, body)
}

// SendBalanceInquiry sends the wallet balance by SMS
func (s *SMSService) SendBalanceInquiry(phone string, balance int64, loc ussd.Locale) error {
	body := fmt.Sprintf("Your wallet balance: %s %s. Thank you for using Soko Connect!",
		ussd.FormatAmount(balance), models.DefaultCurrency)
	if loc == ussd.LocaleSwahili {
		body = fmt.Sprintf("Salio la pochi yako: %s %s. Asante kwa kutumia Soko Connect!",
			ussd.FormatAmount(balance), models.DefaultCurrency)
	}
	return s.SendSMS(phone, body)
}

// SendVoiceInstructions tells the user a shopping call is on its way
func (s *SMSService) SendVoiceInstructions(phone string, loc ussd.Locale) error {
	body := "You will receive a call shortly. Choose your language then follow voice prompts to shop."
	if loc == ussd.LocaleSwahili {
		body = "Utapokea simu hivi karibuni. Chagua lugha yako kisha fuata maelekezo ya sauti kununua."
	}
	return s.SendSMS(phone, body)
}
