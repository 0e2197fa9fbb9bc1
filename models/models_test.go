package models

import "testing"

func TestParseAudienceIsCaseInsensitive(t *testing.T) {
	for _, raw := range []string{"mens", "MENS", " Mens "} {
		got, ok := ParseAudience(raw)
		if !ok || got != AudienceMens {
			t.Errorf("ParseAudience(%q) = %q, %v", raw, got, ok)
		}
	}
	if _, ok := ParseAudience("men"); ok {
		t.Errorf("ParseAudience(men) should be rejected")
	}
}

func TestParseSize(t *testing.T) {
	if s, ok := ParseSize("xl"); !ok || s != SizeXL {
		t.Errorf("ParseSize(xl) = %q, %v", s, ok)
	}
	if _, ok := ParseSize("XS"); ok {
		t.Errorf("XS is not an offered size")
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusShipped, true},
		{OrderStatusPending, OrderStatusCanceled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusReturned, true},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusReturned, true},
		{OrderStatusCanceled, OrderStatusShipped, false},
		{OrderStatusReturned, OrderStatusDelivered, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if OrderStatusPending.IsUpdateTarget() {
		t.Errorf("Pending must not be a valid update target")
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int64
	}{
		{0, 8, 0},
		{8, 8, 1},
		{9, 8, 2},
		{17, 8, 3},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}

func TestParseSortKeyDefaultsToNewest(t *testing.T) {
	if ParseSortKey("price-desc") != SortPriceDesc {
		t.Errorf("price-desc not recognised")
	}
	if ParseSortKey("bogus") != SortCreatedAtDesc {
		t.Errorf("unknown sort should default to createdAt_desc")
	}
}
