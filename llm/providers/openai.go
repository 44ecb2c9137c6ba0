package providers

import (
	"net/http"
	"os"
	"strings"

	"github.com/ghazi-f/ai-kanban/llm"
)

// OpenAIProvider speaks the OpenAI chat completion API, which also
// covers OpenRouter. It embeds OllamaProvider for the shared wire
// format and only overrides the pieces that differ: the default URL
// and the auth headers.
type OpenAIProvider struct {
	OllamaProvider
}

func init() {
	llm.RegisterProvider(&OpenAIProvider{})
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

// BuildURL resolves baseURL to a chat completions endpoint, defaulting
// to the hosted OpenAI API when no base is configured.
func (o *OpenAIProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}

	return baseURL + "/chat/completions"
}

// SetHeaders attaches bearer auth from OPENAI_API_KEY, plus the
// OpenRouter attribution headers when the OPENROUTER_SITE_* variables
// are set.
func (o *OpenAIProvider) SetHeaders(req *http.Request) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	if siteURL := os.Getenv("OPENROUTER_SITE_URL"); siteURL != "" {
		req.Header.Set("HTTP-Referer", siteURL)
	}
	if siteName := os.Getenv("OPENROUTER_SITE_NAME"); siteName != "" {
		req.Header.Set("X-Title", siteName)
	}
}
