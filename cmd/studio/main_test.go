package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/studiotest"
)

// cli runs studio commands against one server, sharing a token file the
// way separate invocations of the binary do.
type cli struct {
	t         *testing.T
	srv       *studiotest.Server
	tokenFile string
}

func newCLI(t *testing.T) *cli {
	return &cli{t: t, srv: studiotest.NewServer(t), tokenFile: filepath.Join(t.TempDir(), "session.json")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cfg := c.srv.ClientConfig()
	cfg.TokenFile = c.tokenFile
	cfg.LogLevel = "error"
	root := newRootCmd(func() (client.Config, error) { return cfg, nil }, client.WithHTTPClient(c.srv.Client()))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--pretty=false"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("studio %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCLI_PromptLifecycle(t *testing.T) {
	c := newCLI(t)

	if out := c.mustRun("signup", "--email", "ada@example.com", "--password", studiotest.Password, "--name", "Ada"); !strings.Contains(out, "Welcome, Ada") {
		t.Fatalf("signup output = %q", out)
	}
	if out := c.mustRun("whoami"); !strings.Contains(out, "ada@example.com") {
		t.Fatalf("whoami output = %q", out)
	}

	notes := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(notes, []byte("quarterly numbers\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	out := c.mustRun("workspace", "--prompt", "Write a haiku", "--tone", "calm", "--title", "Haiku", "--file", notes, "--save")
	if !strings.Contains(out, `Enhanced version of: "Write a haiku"`) || !strings.Contains(out, "with calm tone") {
		t.Fatalf("refine output = %q", out)
	}
	if !strings.Contains(out, "with 1 attachment(s)") {
		t.Fatalf("save output = %q", out)
	}

	var p domain.Prompt
	if err := c.srv.DB.Where("initial_prompt = ?", "Write a haiku").First(&p).Error; err != nil {
		t.Fatalf("load prompt: %v", err)
	}
	if !p.IsSaved || p.RefinedPrompt == nil {
		t.Fatalf("stored prompt = %+v", p)
	}

	if out := c.mustRun("prompts", "--saved", "--search", "haiku"); !strings.Contains(out, p.ID) || !strings.Contains(out, "Haiku") {
		t.Fatalf("saved list = %q", out)
	}
	if out := c.mustRun("prompts", "favorite", p.ID); !strings.Contains(out, "S*") {
		t.Fatalf("favorite output = %q", out)
	}
	if out := c.mustRun("prompts", "--favorites"); !strings.Contains(out, p.ID) {
		t.Fatalf("favorites list = %q", out)
	}
	if out := c.mustRun("copy", p.ID); !strings.HasPrefix(out, "Enhanced version of") {
		t.Fatalf("copy output = %q", out)
	}
	if out := c.mustRun("workspace", "--open", p.ID, "--chat", "Make it shorter", "--rate", "5"); !strings.Contains(out, "Make it shorter") || !strings.Contains(out, "Feedback recorded") {
		t.Fatalf("chat output = %q", out)
	}
	if out := c.mustRun("dashboard"); !strings.Contains(out, "Prompts: 1 (saved 1, favorites 1, refined 1)") {
		t.Fatalf("dashboard output = %q", out)
	}

	c.mustRun("prompts", "delete", p.ID)
	if out := c.mustRun("prompts"); !strings.Contains(out, "No history prompts") {
		t.Fatalf("history after delete = %q", out)
	}

	c.mustRun("logout")
	if _, err := c.run("prompts"); !errors.Is(err, errSignedOut) {
		t.Fatalf("prompts after logout err = %v", err)
	}
}

func TestCLI_SettingsAndTemplates(t *testing.T) {
	c := newCLI(t)
	c.mustRun("signup", "--email", "grace@example.com", "--password", studiotest.Password)

	out := c.mustRun("settings", "update", "--theme", "dark", "--profession", "Chef", "--compact")
	if !strings.Contains(out, "dark") || !strings.Contains(out, "Chef") {
		t.Fatalf("settings output = %q", out)
	}
	if _, err := c.run("settings", "update", "--theme", "neon"); !errors.Is(err, client.ErrValidationFailed) {
		t.Fatalf("invalid theme err = %v", err)
	}
	if _, err := c.run("settings", "update"); err == nil {
		t.Fatalf("empty update accepted")
	}
	if out := c.mustRun("settings", "notify", "push_usage", "off"); !strings.Contains(out, "push_usage: off") {
		t.Fatalf("notify output = %q", out)
	}

	// The profession becomes the default persona of new refinements.
	if out := c.mustRun("workspace", "--prompt", "Plan a menu"); !strings.Contains(out, "Act as Chef") {
		t.Fatalf("refine output = %q", out)
	}

	out = c.mustRun("templates", "create", "--title", "Menu planner", "--category", "cooking", "--prompt", "Plan a weekly menu", "--tags", "food,plan")
	fields := strings.Fields(out)
	if len(fields) < 3 {
		t.Fatalf("create output = %q", out)
	}
	id := fields[2]
	if out := c.mustRun("templates", "--category", "cooking"); !strings.Contains(out, "Menu planner") || !strings.Contains(out, "food,plan") {
		t.Fatalf("template list = %q", out)
	}
	if out := c.mustRun("templates", "--category", "writing", "--search", "MENU"); !strings.Contains(out, "Menu planner") {
		t.Fatalf("search across categories = %q", out)
	}
	if out := c.mustRun("templates", "--search", "food"); strings.Contains(out, "Menu planner") {
		t.Fatalf("tag-only search matched = %q", out)
	}
	if out := c.mustRun("templates", "categories"); !strings.Contains(out, "cooking") {
		t.Fatalf("categories = %q", out)
	}
	if out := c.mustRun("templates", "use", id); strings.TrimSpace(out) != "Plan a weekly menu" {
		t.Fatalf("use output = %q", out)
	}

	var tpl domain.Template
	if err := c.srv.DB.First(&tpl, "id = ?", id).Error; err != nil {
		t.Fatalf("load template: %v", err)
	}
	if tpl.UsageCount != 1 {
		t.Fatalf("usage = %d", tpl.UsageCount)
	}
}

func TestCLI_SignedOutCommands(t *testing.T) {
	c := newCLI(t)
	for _, args := range [][]string{{"whoami"}, {"dashboard"}, {"copy", "x"}, {"templates", "create", "--title", "a", "--category", "b", "--prompt", "c"}} {
		if _, err := c.run(args...); !errors.Is(err, errSignedOut) {
			t.Errorf("studio %v: err = %v", args, err)
		}
	}
	if out := c.mustRun("logout"); !strings.Contains(out, "Signed out") {
		t.Fatalf("logout output = %q", out)
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("é", previewLen+5)
	if got := preview(long); len([]rune(got)) != previewLen || !strings.HasSuffix(got, "...") {
		t.Fatalf("preview = %q", got)
	}
	if got := preview("a\n  b"); got != "a b" {
		t.Fatalf("preview = %q", got)
	}
}
