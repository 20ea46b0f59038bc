// Package notifications composes alert messages and routes them to the
// delivery channel chosen on the alert.
package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"swellwatch/internal/types"
)

//go:embed templates/*.txt
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.txt"))

// Message is channel-neutral notification content.
type Message struct {
	Subject string
	Body    string
	// Short is a single-line body for length-limited channels.
	Short string
}

type comparisonLine struct {
	Label     string
	Forecast  string
	Reference string
	Range     string
}

type messageData struct {
	AlertName   string
	Location    string
	Date        string
	Stars       string
	MinStars    int
	Comparisons []comparisonLine
	Short       string
}

// Compose renders the message for a matched alert.
func Compose(alert *types.Alert, result *types.MatchResult, locationName string, day time.Time) (Message, error) {
	data := messageData{
		AlertName: alertName(alert),
		Location:  locationName,
		Date:      day.Format("Mon Jan 2"),
	}

	var (
		tmpl    string
		subject string
	)
	switch p := alert.Payload.(type) {
	case types.RatingPayload:
		tmpl = "rating.txt"
		stars := 0
		if result.StarRating != nil {
			stars = *result.StarRating
		}
		shown := clampStars(stars)
		data.Stars = strings.Repeat("★", shown) + strings.Repeat("☆", 5-shown)
		data.MinStars = p.MinStarRating
		subject = fmt.Sprintf("%s is %d stars today", locationName, stars)
		data.Short = fmt.Sprintf("%d/5 stars", stars)
	case types.VariablesPayload:
		tmpl = "variables.txt"
		subject = fmt.Sprintf("Conditions at %s match your alert", locationName)
		parts := make([]string, 0, len(result.ComparedProperties))
		for _, c := range result.ComparedProperties {
			data.Comparisons = append(data.Comparisons, comparisonLine{
				Label:     c.Property.Label(),
				Forecast:  formatValue(c.Property, c.ForecastValue),
				Reference: formatValue(c.Property, c.ReferenceValue),
				Range:     formatValue(c.Property, c.Range),
			})
			parts = append(parts, fmt.Sprintf("%s %s", shortLabel(c.Property), formatValue(c.Property, c.ForecastValue)))
		}
		data.Short = strings.Join(parts, ", ")
	default:
		return Message{}, types.NewAppError(types.ErrCodeValidationPayload, "cannot compose message for unknown payload", nil)
	}

	body, err := render(tmpl, data)
	if err != nil {
		return Message{}, err
	}
	short, err := render("sms.txt", data)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: subject, Body: body, Short: short}, nil
}

func render(name string, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to render "+name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func alertName(a *types.Alert) string {
	if a.Name != "" {
		return a.Name
	}
	return "surf"
}

func formatValue(p types.Property, v float64) string {
	switch p {
	case types.PropertyWindDirection, types.PropertySwellDirection:
		return fmt.Sprintf("%.0f%s", v, p.Unit())
	case types.PropertySwellHeight:
		return fmt.Sprintf("%.1f%s", v, p.Unit())
	default:
		return fmt.Sprintf("%.0f%s", v, p.Unit())
	}
}

func shortLabel(p types.Property) string {
	switch p {
	case types.PropertyWindSpeed:
		return "wind"
	case types.PropertyWindDirection:
		return "wind dir"
	case types.PropertySwellHeight:
		return "swell"
	case types.PropertySwellPeriod:
		return "period"
	case types.PropertySwellDirection:
		return "swell dir"
	default:
		return string(p)
	}
}

func clampStars(n int) int {
	if n < 0 {
		return 0
	}
	if n > 5 {
		return 5
	}
	return n
}
