package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	// maxSMSReplyLen keeps AI replies inside roughly two SMS segments
	maxSMSReplyLen = 480

	aiFallbackReply = "Thanks for your message! (AI temporarily unavailable)"
)

var (
	aiServiceInstance *AIService
	aiServiceOnce     sync.Once
)

// SetAIService stores the singleton AI service instance
func SetAIService(a *AIService) {
	aiServiceOnce.Do(func() {
		aiServiceInstance = a
	})
}

// GetAIService returns the singleton AI service instance
func GetAIService() *AIService {
	return aiServiceInstance
}

// AIService answers free-text inbound SMS with a Gemini-generated reply.
// Every failure degrades to a canned acknowledgement so the SMS webhook can
// always answer.
type AIService struct {
	client *genai.Client
	model  string
}

// NewAIService builds the Gemini client from GEMINI_API_KEY and
// GEMINI_MODEL. A missing key is an error; callers treat that as "AI off".
func NewAIService(ctx context.Context) (*AIService, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.Printf("[AI] Initialized Gemini model: %s", model)
	return &AIService{client: client, model: model}, nil
}

// Reply generates an SMS-sized answer to the user's message
func (a *AIService) Reply(ctx context.Context, phone, text string) string {
	prompt := fmt.Sprintf(
		"You are an SMS assistant for Soko Connect, a Tanzanian mobile marketplace. Keep replies short and clear (max ~2 SMS segments). User (%s) said: %q. Reply in plain text, no markdown.",
		phone, text)

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		log.Printf("⚠️ [AI] Generate failed: %v", err)
		return aiFallbackReply
	}

	reply := sanitizeReply(result.Text())
	log.Printf("[AI] Generated reply: %q", reply)
	return reply
}

// sanitizeReply collapses whitespace and trims to SMS-friendly length
func sanitizeReply(text string) string {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return "Sorry, I could not generate a reply."
	}
	if len(clean) > maxSMSReplyLen {
		clean = clean[:maxSMSReplyLen-3] + "..."
	}
	return clean
}
