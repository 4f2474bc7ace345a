package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/notifier"
)

var (
	t0    = time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC)
	clock = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
)

func conversation() []Message {
	return []Message{
		{Role: "user", Content: "Show me a loop, please", Timestamp: t0},
		{Role: "ai", Content: "Sure:\n```go\nfor i := 0; i < 3; i++ {}\n```", Timestamp: t0.Add(time.Minute)},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	return cfg
}

type recordingNotifier struct{ got []notifier.ExportInfo }

func (r *recordingNotifier) NotifyExportComplete(e notifier.ExportInfo) string {
	r.got = append(r.got, e)
	return "notification-1"
}

func TestExport_FilenameAndNotification(t *testing.T) {
	n := &recordingNotifier{}
	e := New(testConfig(), WithClock(clock), WithNotifier(n))

	f, err := e.Export(context.Background(), conversation(), FormatMarkdown, Metadata{Title: "Loops"}, "")
	require.NoError(t, err)
	assert.Equal(t, "chat-export-1773576000000.md", f.Name)
	assert.Equal(t, "text/markdown", f.MIME)
	require.Len(t, n.got, 1)
	assert.Equal(t, notifier.ExportInfo{Type: "markdown", Filename: f.Name}, n.got[0])

	_, err = e.Export(context.Background(), nil, Format("docx"), Metadata{}, "x")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Len(t, n.got, 1)
}

func TestExport_Markdown(t *testing.T) {
	cfg := testConfig()
	cfg.IncludeMetadata = true
	cfg.Watermark = "JAAT-AI"
	e := New(cfg)

	out, err := e.Render(context.Background(), conversation(), FormatMarkdown, Metadata{
		Title: "Loops", AIMode: "Coding", Extra: map[string]string{"persona": "tutor"},
	})
	require.NoError(t, err)
	md := string(out)
	assert.True(t, strings.HasPrefix(md, "# Loops\n\n## Conversation Info\n\n- **AI Mode:** Coding\n- **Persona:** tutor\n"))
	assert.Contains(t, md, "### 👤 User\n\n*3/14/2026, 9:05:00 AM*\n\nShow me a loop, please\n\n")
	assert.Contains(t, md, "### 🤖 AI\n\n")
	assert.Contains(t, md, "```go\nfor i := 0; i < 3; i++ {}\n```")
	assert.True(t, strings.HasSuffix(md, "\n---\n\n*JAAT-AI*\n"))
}

func TestExport_TextAndParts(t *testing.T) {
	cfg := testConfig()
	cfg.IncludeTimestamps = false
	e := New(cfg)
	msgs := append(conversation(), Message{Role: "system", Parts: []Part{
		{Type: "text", Text: "see"},
		{Type: "image", URL: "https://img.example/a.png"},
		{Type: "code", Text: "x := 1"},
	}})

	out, err := e.Render(context.Background(), msgs, FormatText, Metadata{Title: "Loops"})
	require.NoError(t, err)
	txt := string(out)
	assert.True(t, strings.HasPrefix(txt, "Loops\n=====\n\nConversation:\n-------------\n\n"))
	assert.Contains(t, txt, "User: Show me a loop, please\n\n")
	assert.Contains(t, txt, "--- go Start ---\nfor i := 0; i < 3; i++ {}\n--- go End ---")
	assert.Contains(t, txt, "System: see[Image: https://img.example/a.png]\n--- Code Start ---\nx := 1\n--- Code End ---")
}

func TestExport_CSVQuotesContent(t *testing.T) {
	e := New(testConfig())
	msgs := []Message{{Role: "user", Content: `He said "hi", then left`, Timestamp: t0}, {Role: "assistant", Content: "line1\nline2"}}

	out, err := e.Render(context.Background(), msgs, FormatCSV, Metadata{})
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Role", "Content", "Timestamp"}, rows[0])
	assert.Equal(t, []string{"user", `He said "hi", then left`, "3/14/2026, 9:05:00 AM"}, rows[1])
	assert.Equal(t, []string{"assistant", "line1\nline2", ""}, rows[2])
}

func TestExport_JSON(t *testing.T) {
	e := New(testConfig(), WithClock(clock))
	msgs := append(conversation(), Message{Role: "bot", Parts: []Part{{Type: "text", Text: "bye"}}})

	out, err := e.Render(context.Background(), msgs, FormatJSON, Metadata{Title: "Loops", Extra: map[string]string{"title": "ignored", "mood": "calm"}})
	require.NoError(t, err)
	var doc struct {
		Metadata map[string]string `json:"metadata"`
		Messages []Message         `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "2026-03-15T12:00:00Z", doc.Metadata["exportDate"])
	assert.Equal(t, "Loops", doc.Metadata["title"])
	assert.Equal(t, "calm", doc.Metadata["mood"])
	require.Len(t, doc.Messages, 3)
	assert.Equal(t, "assistant", doc.Messages[1].Role)
	assert.Equal(t, "assistant", doc.Messages[2].Role)
	assert.Equal(t, "bye", doc.Messages[2].Content)
	assert.Contains(t, string(out), "\n  \"messages\"")
}

func TestExport_HTML(t *testing.T) {
	cfg := testConfig()
	cfg.IncludeMetadata = true
	cfg.Theme = "dark"
	e := New(cfg)
	msgs := append(conversation(), Message{Role: "user", Content: "<script>alert(1)</script> **bold**"})

	out, err := e.Render(context.Background(), msgs, FormatHTML, Metadata{Title: "Loops", AIMode: "Coding"})
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, "Loops", doc.Find("title").Text())
	assert.Equal(t, "Loops", doc.Find("h1.chat-title").Text())
	assert.Contains(t, doc.Find(".chat-metadata").Text(), "AI Mode: Coding")
	assert.Equal(t, 2, doc.Find(".message-user").Length())
	assert.Equal(t, 1, doc.Find(".message-ai").Length())
	assert.Equal(t, "for i := 0; i < 3; i++ {}", strings.TrimSpace(doc.Find("pre code.language-go").Text()))
	assert.Equal(t, "3/14/2026, 9:05:00 AM", doc.Find(".timestamp").First().Text())
	assert.Zero(t, doc.Find("body script").Length())
	assert.Equal(t, "bold", doc.Find(".message-user strong").Text())
	assert.Contains(t, doc.Find("style").Text(), "#121212")
}

func TestExport_HTMLWithoutCodeFormatting(t *testing.T) {
	cfg := testConfig()
	cfg.FormatCodeBlocks = false
	cfg.IncludeChatTitle = false
	e := New(cfg)

	out, err := e.Render(context.Background(), []Message{{Role: "user", Content: "a < b\nnext"}}, FormatHTML, Metadata{Title: "Hidden"})
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Zero(t, doc.Find(".chat-header").Length())
	content := doc.Find(".message-content")
	assert.Equal(t, 1, content.Find("br").Length())
	assert.Equal(t, "a < bnext", content.Text())
}

func TestExport_XLSX(t *testing.T) {
	e := New(testConfig())
	out, err := e.Render(context.Background(), conversation(), FormatXLSX, Metadata{Title: "Loops"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Conversation")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Role", "Content", "Timestamp"}, rows[0])
	assert.Equal(t, "user", rows[1][0])
	assert.Equal(t, "assistant", rows[2][0])
	assert.Equal(t, "3/14/2026, 9:06:00 AM", rows[2][2])

	info, err := f.GetRows("Info")
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Loops"}, info[0])
	assert.Equal(t, []string{"Messages", "2"}, info[len(info)-1])
}

func TestFromHistory(t *testing.T) {
	msgs := FromHistory([]jaat.Turn{
		{Role: jaat.RoleUser, Content: "hi", Timestamp: t0},
		{Role: jaat.RoleAssistant, Content: "hello", RequestType: "greeting"},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Nil(t, msgs[0].Metadata)
	assert.Equal(t, "greeting", msgs[1].Metadata["requestType"])
}
