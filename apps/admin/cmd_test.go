package main

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/storage/jsondb"
	"github.com/trezcool/darasa/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := testutil.NewConfig(t)
	repo := jsondb.NewUserRepository(testutil.PrepareDB(t))

	var out bytes.Buffer
	return &commandLine{
		usrRepo:    repo,
		usrSvc:     user.NewService(repo, emailsvc.NewConsoleServiceMock(conf, testutil.NewLogger()), conf),
		slideLimit: 40,
		out:        &out,
	}, &out
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)

	for _, args := range [][]string{{"admin"}, {"admin", "lol"}} {
		assert.Equal(t, errHelp, cli.run(args))
	}
	assert.Contains(t, out.String(), "resetpassword -username USERNAME|EMAIL")
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "root"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "Root", "-email", "root@test.cd", "-admin"}, pwd: "s3cr3t-pwd"},
		{name: "update", args: []string{"adduser", "-email", "ROOT@test.cd", "-name", "Super User"}, pwd: "n3w-s3cr3t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			assert.Equal(t, tt.wantErr, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	users, err := cli.usrRepo.QueryUsers(user.QueryFilter{}, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	usr := users[0]
	assert.Equal(t, "root", usr.Username)
	assert.Equal(t, "Super User", usr.Name)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsAdmin())
	assert.NoError(t, usr.CheckPassword("n3w-s3cr3t"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			assert.Equal(t, tt.wantErr, err)

			if err == nil {
				refreshed, err := cli.usrRepo.GetUserByID(usr.ID)
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(tt.pwd))
			}
		})
	}
}

func Test_commandLine_report(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateUser(t, cli.usrRepo, "Ada", "ada", "ada@school.cd", "", nil, true)
	testutil.CreateUser(t, cli.usrRepo, "Bob", "bob", "bob@school.cd", "", nil, true)

	require.NoError(t, cli.run([]string{"admin", "report"}))
	var rep user.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, 2, rep.TotalUsers)
	assert.Equal(t, []user.DomainCount{{Domain: "school.cd", Users: 2}}, rep.Statistics.Domains)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "report", "-csv"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Username,Email,Created At,Days Since Creation", lines[0])
	assert.Contains(t, lines[1], ",ada,ada@school.cd,")
}

func Test_commandLine_slides(t *testing.T) {
	cli, out := setup(t)

	path := filepath.Join(t.TempDir(), "lesson.txt")
	text := strings.Repeat("a", 30) + "\n\n" + strings.Repeat("b", 30)
	require.NoError(t, ioutil.WriteFile(path, []byte(text), 0o644))

	assert.Equal(t, errHelp, cli.run([]string{"admin", "slides"}))
	assert.Error(t, cli.run([]string{"admin", "slides", "-file", filepath.Join(t.TempDir(), "missing.txt")}))
	assert.Error(t, cli.run([]string{"admin", "slides", "-file", path, "-limit", "-3"}))

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "slides", "-file", path}))
	want := "--- 1 / 2 ---\n" + strings.Repeat("a", 30) + "\n" +
		"--- 2 / 2 ---\n" + strings.Repeat("b", 30) + "\n"
	assert.Equal(t, want, out.String())

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "slides", "-file", path, "-limit", "100"}))
	assert.Equal(t, "--- 1 / 1 ---\n"+text+"\n", out.String())
}
