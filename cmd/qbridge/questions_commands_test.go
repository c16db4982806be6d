package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"qbridge/internal/api"
	"qbridge/internal/questions"
)

func TestQuestionsListTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"questions", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("questions list: %v", err)
	}
	requireContains(t, out, "Storage / Luks Activation")
	requireContains(t, out, "decrypt, skip")
	requireContains(t, out, "Continue?")
	if strings.Index(out, "Continue?") > strings.Index(out, "Unlock /dev/sda1") {
		t.Fatalf("expected rows ordered by id:\n%s", out)
	}
}

func TestQuestionsListFlattensMultilineText(t *testing.T) {
	env := setupCLITestEnv(t)
	env.service.SetItems([]questions.Question{{
		Generic: questions.GenericQuestion{
			ID:            12,
			Class:         "software.retry",
			Text:          "Repository unreachable.\nRetry?",
			Options:       []string{"retry", "abort"},
			DefaultOption: "retry",
		},
	}})

	out, _, err := runCLI(t, []string{"questions", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("questions list: %v", err)
	}
	requireContains(t, out, "Repository unreachable. Retry?")
}

func TestQuestionsListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"questions", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("questions list --json: %v", err)
	}
	var items []api.Question
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(items) != 2 || items[0].WithPassword == nil || items[1].WithPassword != nil {
		t.Fatalf("unexpected questions %+v", items)
	}
	requireContains(t, out, `"with_password": null`)
}

func TestQuestionsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	env.service.SetItems(nil)

	out, _, err := runCLI(t, []string{"questions", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("questions list: %v", err)
	}
	requireContains(t, out, "No pending questions")
}

func TestQuestionsAnswer(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"questions", "answer", "3", "yes"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("questions answer: %v", err)
	}
	requireContains(t, out, "answer sent to question 3")
	got, ok := env.service.Answer(3)
	if !ok || got.Generic.Answer != "yes" || got.WithPassword != nil {
		t.Fatalf("unexpected forwarded answer %+v", got)
	}
}

func TestQuestionsAnswerForwardsEmptyAnswer(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"questions", "answer", "3", ""}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("questions answer: %v", err)
	}
	got, ok := env.service.Answer(3)
	if !ok || got.Generic.Answer != "" {
		t.Fatalf("expected empty answer to be forwarded, got %+v (recorded=%v)", got, ok)
	}
}

func TestQuestionsAnswerWithPassword(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		input string
	}{
		{name: "flag", args: []string{"questions", "answer", "7", "decrypt", "--password", "s3cr3t"}},
		{name: "stdin", args: []string{"questions", "answer", "7", "decrypt", "--password-stdin"}, input: "s3cr3t\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupCLITestEnv(t)
			if _, _, err := runCLIWithInput(t, tt.args, env.socketPath, env.configPath, tt.input); err != nil {
				t.Fatalf("questions answer: %v", err)
			}
			got, ok := env.service.Answer(7)
			if !ok || got.WithPassword == nil || got.WithPassword.Password != "s3cr3t" {
				t.Fatalf("password not forwarded: %+v", got)
			}
		})
	}
}

func TestQuestionsAnswerErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "bad id", args: []string{"questions", "answer", "abc", "yes"}, want: "invalid question id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args, env.socketPath, env.configPath)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestQuestionsListWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.sock")

	_, _, err := runCLI(t, []string{"questions", "list"}, missing, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "qbridge start") {
		t.Fatalf("expected start hint, got %v", err)
	}
}

func TestQuestionsWatchNeedsAPI(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"questions", "watch"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "api.bind") {
		t.Fatalf("expected api.bind error, got %v", err)
	}
}

func TestClassLabel(t *testing.T) {
	tests := map[string]string{
		"storage.luks_activation": "Storage / Luks Activation",
		"software.confirm":        "Software / Confirm",
		"plain":                   "Plain",
		"":                        "-",
	}
	for class, want := range tests {
		if got := classLabel(class); got != want {
			t.Fatalf("classLabel(%q) = %q, want %q", class, got, want)
		}
	}
}
