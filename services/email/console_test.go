package emailsvc_test

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/tests"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := testutil.NewConfig(t)
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(conf, logger)
	svc := emailsvc.NewConsoleServiceMock(conf, logger)

	to := []mail.Address{{Name: "Ada", Address: "ada@school.cd"}}
	svc.SendMessages(
		&core.EmailMessage{To: to, Subject: "plain", BodyStr: "hello"},
		&core.EmailMessage{
			To:           to,
			Subject:      "Welcome",
			TemplateName: "welcome",
			TemplateData: map[string]string{"Name": "Ada", "Username": "ada"},
		},
		&core.EmailMessage{Subject: "nobody", BodyStr: "dropped"},
		&core.EmailMessage{To: to, Subject: "empty"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "hello", sent[0].TextContent)
	assert.Empty(t, sent[0].HTMLContent)
	assert.Contains(t, sent[1].TextContent, "Welcome to Darasa, Ada!")
	assert.Contains(t, sent[1].TextContent, `"ada"`)
	assert.NotEmpty(t, sent[1].HTMLContent)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}
