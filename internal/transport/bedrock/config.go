package bedrock

// Config contains Bedrock transport configuration.
// All fields map to AWS SDK config loader options:
//   - Region: Maps to config.WithRegion()
//   - Profile: Maps to config.WithSharedConfigProfile()
//   - Endpoint: Overrides the service endpoint (integration testing)
//   - MaxRetries: Maps to config.WithRetryMaxAttempts(); retry policy lives
//     in the SDK, never in this package
type Config struct {
	Region     string `env:"AWS_REGION"           envDefault:"us-east-1"`
	Profile    string `env:"AWS_PROFILE"`
	Endpoint   string `env:"BEDROCK_ENDPOINT"`
	MaxRetries int    `env:"BEDROCK_MAX_RETRIES"  envDefault:"3"`
}
