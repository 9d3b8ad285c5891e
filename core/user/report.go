package user

import (
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const (
	reportTopDomains = 10
	day              = 24 * time.Hour
)

var csvHeader = []string{"ID", "Username", "Email", "Created At", "Days Since Creation"}

type (
	// Report summarises the registered accounts at a given time.
	Report struct {
		Timestamp  time.Time        `json:"timestamp"`
		TotalUsers int              `json:"total_users"`
		Statistics ReportStatistics `json:"statistics"`
		Users      []ReportUser     `json:"users"`
	}

	ReportStatistics struct {
		CreatedToday          int           `json:"users_created_today"`
		CreatedThisWeek       int           `json:"users_created_this_week"`
		CreatedThisMonth      int           `json:"users_created_this_month"`
		AverageUsernameLength float64       `json:"average_username_length"`
		Domains               []DomainCount `json:"email_domains"`
	}

	DomainCount struct {
		Domain string `json:"domain"`
		Users  int    `json:"users"`
	}

	ReportUser struct {
		ID                string    `json:"id"`
		Username          string    `json:"username"`
		Email             string    `json:"email"`
		Roles             []string  `json:"roles"`
		IsActive          bool      `json:"is_active"`
		CreatedAt         time.Time `json:"created_at"`
		DaysSinceCreation int       `json:"days_since_creation"`
		HasPassword       bool      `json:"has_password"`
	}
)

// Report builds the account report as of now.
// "This week" and "this month" are the last 7 and 30 calendar days.
func (svc *service) Report(now time.Time) (Report, error) {
	users, err := svc.repo.QueryUsers(QueryFilter{}, []core.Ordering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return Report{}, err
	}
	return buildReport(users, now.UTC()), nil
}

func buildReport(users []User, now time.Time) Report {
	today := truncateDay(now)
	weekStart := today.Add(-7 * day)
	monthStart := today.Add(-30 * day)

	rep := Report{
		Timestamp:  now,
		TotalUsers: len(users),
		Users:      make([]ReportUser, 0, len(users)),
	}
	stats := &rep.Statistics

	var unameLen int
	domains := make(map[string]int)
	for _, usr := range users {
		created := truncateDay(usr.CreatedAt.UTC())
		if created.Equal(today) {
			stats.CreatedToday++
		}
		if !created.Before(weekStart) {
			stats.CreatedThisWeek++
		}
		if !created.Before(monthStart) {
			stats.CreatedThisMonth++
		}

		unameLen += len([]rune(usr.Username))
		if at := strings.LastIndex(usr.Email, "@"); at >= 0 && at < len(usr.Email)-1 {
			domains[usr.Email[at+1:]]++
		}

		rep.Users = append(rep.Users, ReportUser{
			ID:                usr.ID,
			Username:          usr.Username,
			Email:             usr.Email,
			Roles:             usr.Roles,
			IsActive:          usr.IsActive,
			CreatedAt:         usr.CreatedAt,
			DaysSinceCreation: daysBetween(usr.CreatedAt, now),
			HasPassword:       len(usr.PasswordHash) > 0,
		})
	}

	if len(users) > 0 {
		avg := float64(unameLen) / float64(len(users))
		stats.AverageUsernameLength = math.Round(avg*100) / 100
	}
	stats.Domains = topDomains(domains, reportTopDomains)
	return rep
}

// topDomains sorts by user count, then by name.
func topDomains(counts map[string]int, n int) []DomainCount {
	out := make([]DomainCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, DomainCount{Domain: d, Users: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Users != out[j].Users {
			return out[i].Users > out[j].Users
		}
		return out[i].Domain < out[j].Domain
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ExportCSV writes one row per user, oldest first.
func (svc *service) ExportCSV(w io.Writer, now time.Time) error {
	rep, err := svc.Report(now)
	if err != nil {
		return err
	}
	return WriteCSV(w, rep)
}

const csvNoEmail = "N/A"

// WriteCSV writes rep's users as CSV rows, with N/A for a missing email.
func WriteCSV(w io.Writer, rep Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, u := range rep.Users {
		email := u.Email
		if email == "" {
			email = csvNoEmail
		}
		row := []string{
			u.ID,
			u.Username,
			email,
			u.CreatedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(u.DaysSinceCreation),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// CSVFilename is the attachment name of a report exported at t.
func CSVFilename(t time.Time) string {
	return "users_" + t.UTC().Format("2006-01-02") + ".csv"
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / day)
}
