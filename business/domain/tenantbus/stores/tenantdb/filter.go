package tenantdb

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ridewave/ridewave/business/domain/tenantbus"
)

func applyFilter(filter tenantbus.QueryFilter, data map[string]any, buf *bytes.Buffer) {
	var wc []string

	if filter.Name != nil {
		data["name"] = fmt.Sprintf("%%%s%%", filter.Name.String())
		wc = append(wc, "t.name LIKE :name")
	}

	if filter.Tier != nil {
		data["tier"] = filter.Tier.String()
		wc = append(wc, "t.tier = :tier")
	}

	if filter.Active != nil {
		data["active"] = *filter.Active
		wc = append(wc, "t.active = :active")
	}

	if filter.StartCreatedAt != nil {
		data["start_created_at"] = filter.StartCreatedAt.UTC()
		wc = append(wc, "t.created_at >= :start_created_at")
	}

	if filter.EndCreatedAt != nil {
		data["end_created_at"] = filter.EndCreatedAt.UTC()
		wc = append(wc, "t.created_at <= :end_created_at")
	}

	if len(wc) > 0 {
		buf.WriteString(" WHERE ")
		buf.WriteString(strings.Join(wc, " AND "))
	}
}
