package mail

import (
	"fmt"
	"html/template"
	"strings"
)

const (
	priceNotificationSubject = "Your tracked item dropped in price"
	activationSubject        = "Activate your pricewatch account"
)

var priceNotificationHTML = template.Must(template.New("price").Parse(
	`<p>Your item is now selling for <strong>{{printf "%.2f" .Price}}</strong>.</p>
<p>Click <a href="{{.URL}}">here</a> to go to the website.</p>`))

var activationHTML = template.Must(template.New("activation").Parse(
	`<p>Click the following button to activate your account:</p>
<p><a href="{{.Link}}">Activate</a></p>`))

func renderPriceNotification(itemURL string, price float64) (text, html string, err error) {
	text = fmt.Sprintf(
		"Your item is now selling for a price of %.2f.\nGo to %s to buy it.",
		price, itemURL,
	)

	var b strings.Builder
	err = priceNotificationHTML.Execute(&b, struct {
		URL   string
		Price float64
	}{URL: itemURL, Price: price})
	if err != nil {
		return "", "", fmt.Errorf("rendering price notification: %w", err)
	}

	return text, b.String(), nil
}

func renderActivation(link string) (text, html string, err error) {
	text = fmt.Sprintf(
		"Paste the following link in your browser to activate your account: %s",
		link,
	)

	var b strings.Builder
	err = activationHTML.Execute(&b, struct{ Link string }{Link: link})
	if err != nil {
		return "", "", fmt.Errorf("rendering activation email: %w", err)
	}

	return text, b.String(), nil
}
