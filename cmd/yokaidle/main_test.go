package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestVAPIDGenerate(t *testing.T) {
	out := run(t, "vapid", "generate")
	if !strings.Contains(out, "YOKAIDLE_PUSH_VAPID_PUBLIC_KEY=") || !strings.Contains(out, "YOKAIDLE_PUSH_VAPID_PRIVATE_KEY=") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPushPreviewFallsBackToText(t *testing.T) {
	out := run(t, "push", "preview", "hola mundo")
	var n struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.Unmarshal([]byte(out), &n); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if n.Title != "Yo-kaidle" || n.Body != "hola mundo" {
		t.Fatalf("unexpected notification %+v", n)
	}
}
