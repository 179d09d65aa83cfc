package analytics

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/homequote-backend/api/responses"
	"github.com/angelmondragon/homequote-backend/internal/analytics"
	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

// MarketplaceAnalytics serves admin KPIs for a window, optionally filtered by category.
func MarketplaceAnalytics(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "analytics unavailable"))
			return
		}

		start, end, err := resolveAnalyticsRange(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		req := types.MarketplaceQueryRequest{
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Start:    start,
			End:      end,
		}

		result, err := service.Query(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
