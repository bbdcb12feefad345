package tracer

import (
	"context"
	"fmt"
	"testing"

	"github.com/buyo-io/gpt-oss-mcp/internal/infra/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown returned error: %v", err)
	}
}

func TestSetupNoopExporter(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "noop"})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(context.Background())
}

func TestSetupStdoutExporter(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "stdout"})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "test.span")
	if ctx == nil {
		t.Error("StartSpan returned nil context")
	}
	RecordError(span, fmt.Errorf("boom"))
	SetOK(span)
	span.End()
}

func TestSetupUnsupportedExporter(t *testing.T) {
	_, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "jaeger"})
	if err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func TestAttrHelpers(t *testing.T) {
	if StringAttr("k", "v").Key != "k" {
		t.Error("StringAttr key mismatch")
	}
	if IntAttr("n", 3).Value.AsInt64() != 3 {
		t.Error("IntAttr value mismatch")
	}
}
