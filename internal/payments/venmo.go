package payments

import (
	"fmt"
	"net/url"
)

// VenmoChargeLink builds the deep link that opens Venmo with a charge
// request prefilled. Pure URL construction, no network call; the client
// hands the link to the user.
func VenmoChargeLink(username string, amount float64, note string) string {
	u := url.URL{Scheme: "https", Host: "venmo.com", Path: "/" + username}
	q := url.Values{}
	q.Set("txn", "charge")
	q.Set("amount", fmt.Sprintf("%.2f", amount))
	if note != "" {
		q.Set("note", note)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
