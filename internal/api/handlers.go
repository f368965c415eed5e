/**
 * @description
 * The HTTP handler aggregate. It holds the application services the route
 * handlers delegate to, plus upload settings for proof files.
 */
package api

import (
	"github.com/vyaparlink/directory-server/internal/app"
)

const defaultUploadDir = "uploads"

// Handler holds the application services that handlers interact with.
type Handler struct {
	accounts      *app.AccountService
	directory     *app.DirectoryService
	subscriptions *app.SubscriptionService
	affiliates    *app.AffiliateService
	ledger        *app.LedgerService

	uploadDir      string
	uploadMaxBytes int64
}

// NewHandler creates a new Handler with the given services.
func NewHandler(
	accounts *app.AccountService,
	directory *app.DirectoryService,
	subscriptions *app.SubscriptionService,
	affiliates *app.AffiliateService,
	ledger *app.LedgerService,
	uploadMaxBytes int64,
) *Handler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = 5 << 20
	}
	return &Handler{
		accounts:       accounts,
		directory:      directory,
		subscriptions:  subscriptions,
		affiliates:     affiliates,
		ledger:         ledger,
		uploadDir:      defaultUploadDir,
		uploadMaxBytes: uploadMaxBytes,
	}
}
