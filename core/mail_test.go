package core_test

import (
	"net/mail"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/fs"
)

func TestParseEmailTemplates(t *testing.T) {
	conf := &core.Config{FrontendBaseURL: "http://ratiba.test", TestMode: true}
	defer core.ParseEmailTemplates(appfs.FS, conf, core.NopLogger)

	newMessage := func() *core.EmailMessage {
		return &core.EmailMessage{
			To:           []mail.Address{{Name: "Student", Address: "student@test.com"}},
			Subject:      "Upgrade",
			TemplateName: "upgrade_reminder",
			TemplateData: map[string]string{
				"Name":       "Student",
				"CourseID":   "course-v1:Ratiba+Go101+2020",
				"CourseName": "Go 101",
				"Deadline":   "January 19, 2020",
			},
		}
	}

	t.Run("embedded templates", func(t *testing.T) {
		core.ParseEmailTemplates(appfs.FS, conf, core.NopLogger)
		msg := newMessage()
		require.NoError(t, msg.Render())
		assert.True(t, msg.HasContent())
		assert.Contains(t, msg.TextContent, "Hi Student")
		assert.Contains(t, msg.TextContent, "The Ratiba team") // base layout
		assert.Contains(t, msg.HTMLContent, "<strong>Go 101</strong>")
		assert.Contains(t, msg.HTMLContent, `<a href="http://ratiba.test">`)
	})

	t.Run("missing base layout", func(t *testing.T) {
		fsys := fstest.MapFS{
			"templates/email/upgrade_reminder.txt": {Data: []byte(`{{define "content"}}Hi{{end}}`)},
		}
		core.ParseEmailTemplates(fsys, conf, core.NopLogger)
		msg := newMessage()
		assert.EqualError(t, msg.Render(), `email template "upgrade_reminder" not found`)
		assert.False(t, msg.HasContent())
	})

	t.Run("plain body", func(t *testing.T) {
		msg := &core.EmailMessage{BodyStr: "hello"}
		require.NoError(t, msg.Render())
		assert.Equal(t, "hello", msg.TextContent)
	})
}
