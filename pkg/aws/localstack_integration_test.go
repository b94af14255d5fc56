package aws

import (
	"context"
	"os"
	"testing"
)

// Runs only when RUN_LOCALSTACK_INTEGRATION=true and AWS_ENDPOINT points at
// LocalStack (default http://localhost:4566).
func TestSNSPublish_LocalStack(t *testing.T) {
	if os.Getenv("RUN_LOCALSTACK_INTEGRATION") != "true" {
		t.Skip("skipping localstack integration test; set RUN_LOCALSTACK_INTEGRATION=true to run")
	}

	endpoint := os.Getenv("AWS_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}
	cfg, err := LoadAWSConfig(context.Background(), Options{Region: "us-east-1", Endpoint: endpoint})
	if err != nil {
		t.Fatalf("failed to load aws config: %v", err)
	}
	topic := os.Getenv("PAYMENT_SNS_TOPIC_ARN")
	if topic == "" {
		t.Fatalf("PAYMENT_SNS_TOPIC_ARN must be set for integration test")
	}
	sns := NewSNSClient(cfg)
	if err := sns.Publish(context.Background(), topic, []byte(`{"test":"ok"}`), map[string]string{"eventType": "test"}); err != nil {
		t.Fatalf("sns publish failed: %v", err)
	}
}
