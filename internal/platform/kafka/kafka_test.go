package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTopics(t *testing.T) {
	cfg := Config{Brokers: []string{"localhost:9092"}}
	cfg.DefaultTopics()

	assert.Equal(t, "haven.audit.compliance", cfg.ComplianceTopic)
	assert.Equal(t, "haven.audit.security", cfg.SecurityTopic)
	assert.Equal(t, "haven.audit.ops", cfg.OpsTopic)
	assert.Equal(t, "haven-audit-materializer", cfg.ConsumerGroup)
}

func TestDefaultTopics_PreservesOverrides(t *testing.T) {
	cfg := Config{
		ComplianceTopic: "custom.compliance",
		ConsumerGroup:   "custom-group",
	}
	cfg.DefaultTopics()

	assert.Equal(t, "custom.compliance", cfg.ComplianceTopic)
	assert.Equal(t, "custom-group", cfg.ConsumerGroup)
	assert.Equal(t, "haven.audit.security", cfg.SecurityTopic, "unset topics still get defaults")
}

func TestTopicFor(t *testing.T) {
	cfg := Config{}
	cfg.DefaultTopics()

	tests := []struct {
		category string
		want     string
	}{
		{"compliance", "haven.audit.compliance"},
		{"security", "haven.audit.security"},
		{"operations", "haven.audit.ops"},
		{"unknown", "haven.audit.ops"}, // unknown categories route to ops
		{"", "haven.audit.ops"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.TopicFor(tt.category), "category %q", tt.category)
	}
}
