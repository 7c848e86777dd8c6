package email

import (
	"fmt"

	"github.com/avelic/skyfare/internal/kafka"
)

func price(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func purchaseConfirmedBody(e kafka.Event) string {
	return fmt.Sprintf(`<html><body>
<h2>Ticket confirmed</h2>
<p>Your purchase <b>%s</b> for flight <b>%s</b> has been completed.</p>
<p>Amount charged: <b>%s</b></p>
</body></html>`, e.PurchaseID, e.FlightName, price(e.TicketPriceCents))
}

func purchaseFailedBody(e kafka.Event) string {
	return fmt.Sprintf(`<html><body>
<h2>Purchase failed</h2>
<p>We could not process purchase <b>%s</b> for flight <b>%s</b>.</p>
<p>Please contact support.</p>
</body></html>`, e.PurchaseID, e.FlightName)
}

func purchaseCancelledBody(e kafka.Event) string {
	return fmt.Sprintf(`<html><body>
<h2>Purchase cancelled</h2>
<p>Purchase <b>%s</b> was cancelled and <b>%s</b> has been refunded to your account.</p>
</body></html>`, e.PurchaseID, price(e.TicketPriceCents))
}

func flightCancelledBody(e kafka.Event) string {
	return fmt.Sprintf(`<html><body>
<h2>Flight cancelled</h2>
<p>We are sorry: flight <b>%s</b> has been cancelled.</p>
<p>Your ticket price of <b>%s</b> has been refunded to your account balance.</p>
</body></html>`, e.FlightName, price(e.TicketPriceCents))
}
