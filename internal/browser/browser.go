// Package browser opens URLs in the user's default browser for OAuth
// login flows.
package browser

import (
	"fmt"

	"github.com/skratchdot/open-golang/open"
	log "github.com/sirupsen/logrus"
)

// Open launches the default browser at url. On failure the URL is printed
// so the user can open it by hand; login can still complete.
func Open(url string) {
	if err := open.Run(url); err != nil {
		log.Warnf("failed to open browser: %v", err)
		fmt.Printf("Please open the following URL in your browser:\n%s\n", url)
	}
}
