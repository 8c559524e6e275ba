package config

import "os"

// Settings carries the provider credentials and tunables read once at boot.
// Connection strings for the datastores stay with their Init* functions.
type Settings struct {
	Port string

	OpenAIAPIKey     string
	OpenAIModel      string
	DeepgramAPIKey   string
	ElevenLabsAPIKey string
	DefaultVoiceID   string

	VertexProjectID string
	VertexLocation  string
	VertexModel     string

	GCSBucket string

	StripeSecretKey string
	StripeMeterName string

	GoogleClientID     string
	GoogleClientSecret string

	SquareClientID     string
	SquareClientSecret string
	SquareSandbox      bool

	ResendAPIKey string
	EmailFrom    string
	NotifyEmail  string
}

func LoadSettings() Settings {
	return Settings{
		Port: getenv("PORT", "8080"),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getenv("OPENAI_MODEL", "gpt-4o"),
		DeepgramAPIKey:   os.Getenv("DEEPGRAM_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		DefaultVoiceID:   os.Getenv("ELEVENLABS_VOICE_ID"),

		VertexProjectID: os.Getenv("VERTEX_PROJECT_ID"),
		VertexLocation:  getenv("VERTEX_LOCATION", "us-central1"),
		VertexModel:     getenv("VERTEX_MODEL", "gemini-2.0-flash"),

		GCSBucket: os.Getenv("GCS_BUCKET"),

		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		StripeMeterName: getenv("STRIPE_METER_NAME", "call_minutes"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),

		SquareClientID:     os.Getenv("SQUARE_CLIENT_ID"),
		SquareClientSecret: os.Getenv("SQUARE_CLIENT_SECRET"),
		SquareSandbox:      os.Getenv("SQUARE_ENVIRONMENT") == "sandbox",

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    os.Getenv("EMAIL_FROM"),
		NotifyEmail:  os.Getenv("NOTIFY_EMAIL"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
