package services

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var (
	twilioServiceInstance *TwilioService
	twilioServiceMu       sync.Mutex
)

// SetTwilioService sets the global twilio service instance (call from main.go)
func SetTwilioService(ts *TwilioService) {
	twilioServiceMu.Lock()
	defer twilioServiceMu.Unlock()
	twilioServiceInstance = ts
}

// GetTwilioService returns the global twilio service instance
func GetTwilioService() *TwilioService {
	twilioServiceMu.Lock()
	defer twilioServiceMu.Unlock()
	return twilioServiceInstance
}

// TwilioService sends outbound SMS and places voice calls
type TwilioService struct {
	client    *twilio.RestClient
	smsFrom   string
	voiceFrom string
}

// NewTwilioService creates a new Twilio service instance from environment
// credentials
func NewTwilioService() (*TwilioService, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	smsFrom := os.Getenv("TWILIO_SMS_FROM")
	voiceFrom := os.Getenv("TWILIO_VOICE_FROM")

	if accountSid == "" || authToken == "" || smsFrom == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}
	if voiceFrom == "" {
		voiceFrom = smsFrom
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioService{
		client:    client,
		smsFrom:   smsFrom,
		voiceFrom: voiceFrom,
	}, nil
}

// SendSMS sends a plain-text SMS
func (t *TwilioService) SendSMS(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.smsFrom)
	params.SetTo(to)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send SMS to %s: %v", to, err)
		return err
	}

	log.Printf("✅ SMS sent to %s! SID: %s", to, *resp.Sid)
	return nil
}

// StartCall places an outbound voice call; the telecom fetches call
// instructions from callbackURL once the callee answers
func (t *TwilioService) StartCall(to, callbackURL string) error {
	params := &twilioApi.CreateCallParams{}
	params.SetFrom(t.voiceFrom)
	params.SetTo(to)
	params.SetUrl(callbackURL)

	resp, err := t.client.Api.CreateCall(params)
	if err != nil {
		log.Printf("❌ Failed to start call to %s: %v", to, err)
		return err
	}

	log.Printf("✅ Voice call started to %s! SID: %s", to, *resp.Sid)
	return nil
}
