package delivery

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/librenews/skywire/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/match.html.tmpl"))
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/match.txt.tmpl"))
)

type emailData struct {
	SubscriptionName string
	Text             string
	Author           string
	PostURL          string
	PostedAt         string
	TrackURL         string
}

func subjectFor(sub *model.Subscription) string {
	return "New Match found for: " + sub.Name
}

func renderEmail(to string, sub *model.Subscription, match *model.Match, appURL string) (Email, error) {
	data := emailData{
		SubscriptionName: sub.Name,
		Text:             match.Text(),
		Author:           match.AuthorDID(),
		PostURL:          match.PostURL(),
	}
	if at := match.IndexedAt(); !at.IsZero() {
		data.PostedAt = at.UTC().Format("Jan 2, 2006 15:04 MST")
	}
	if appURL != "" {
		data.TrackURL = strings.TrimRight(appURL, "/") + "/tracks/" + url.PathEscape(sub.ExternalID)
	}

	var html, text bytes.Buffer
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("rendering html body: %w", err)
	}
	if err := textTemplate.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("rendering text body: %w", err)
	}

	return Email{
		To:      to,
		Subject: subjectFor(sub),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
