package naming

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		table   string
		columns []string
		kind    ConstraintKind
		want    string
	}{
		{
			name:    "short unique index unchanged",
			table:   "users",
			columns: []string{"email"},
			kind:    KindUnique,
			want:    "users_email_uk",
		},
		{
			name:    "prefixed primary key unchanged",
			prefix:  "wp_",
			table:   "posts",
			columns: []string{"title"},
			kind:    KindPrimary,
			want:    "wp_posts_title_pk",
		},
		{
			name:    "long foreign key shortened evenly",
			table:   "orders",
			columns: []string{"customer_id", "product_id", "warehouse_location"},
			kind:    KindForeign,
			want:    "or_cus_id_pr_id_ware_loc_fk",
		},
		{
			name:    "uppercase dashes and dots normalized",
			table:   "User-Profiles",
			columns: []string{"Email.Address"},
			kind:    KindUnique,
			want:    "user_profiles_email_address_uk",
		},
		{
			name:    "plain index keeps verbatim kind",
			table:   "subscription_invoices",
			columns: []string{"billing_period_start"},
			kind:    KindIndex,
			want:    "subscript_invoi_bill_per_st_in",
		},
		{
			name:    "prefix segment shrinks with the rest",
			prefix:  "app_",
			table:   "customer_addresses",
			columns: []string{"customer_id", "address_type"},
			kind:    KindUnique,
			want:    "ap_cus_addr_cus_id_ad_ty_uk",
		},
		{
			name:    "custom kind used verbatim",
			table:   "users",
			columns: []string{"email"},
			kind:    ConstraintKind("custom_kind"),
			want:    "users_email_custom_kind",
		},
		{
			name:    "polymorphic index",
			table:   "comments",
			columns: []string{"commentable_type", "commentable_id"},
			kind:    KindIndex,
			want:    "comm_comment_ty_comment_id_in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.prefix, tt.table, tt.columns, tt.kind)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Generate(%q, %q, %v, %q) = %q, want %q",
					tt.prefix, tt.table, tt.columns, tt.kind, got, tt.want)
			}
		})
	}
}

func TestGenerate_Postconditions(t *testing.T) {
	requests := []Request{
		{Table: "orders", Columns: []string{"customer_id", "product_id", "warehouse_location"}, Kind: KindForeign},
		{Prefix: "tenant.", Table: "Very-Long.Table-Name", Columns: []string{"First-Column", "Second.Column"}, Kind: KindIndex},
		{Table: "invoice_line_items", Columns: []string{"invoice_id", "product_sku"}, Kind: KindIndex},
		{Table: "users", Columns: []string{"email"}, Kind: KindUnique},
	}

	for _, req := range requests {
		got, err := Namer{}.Generate(req)
		if err != nil {
			t.Fatalf("Generate(%+v) error = %v", req, err)
		}
		if n := utf8.RuneCountInString(got); n > DefaultMaxLength {
			t.Errorf("Generate(%+v) = %q has %d characters, want <= %d", req, got, n, DefaultMaxLength)
		}
		if strings.ContainsAny(got, "-.") {
			t.Errorf("Generate(%+v) = %q contains '-' or '.'", req, got)
		}
		if got != strings.ToLower(got) {
			t.Errorf("Generate(%+v) = %q contains uppercase letters", req, got)
		}
	}
}

func TestGenerate_KindShortCodes(t *testing.T) {
	tests := []struct {
		kind ConstraintKind
		want string
	}{
		{KindPrimary, "_pk"},
		{KindForeign, "_fk"},
		{KindUnique, "_uk"},
		{KindIndex, "_index"},
		{ConstraintKind("custom_kind"), "_custom_kind"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := Generate("", "users", []string{"id"}, tt.kind)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if !strings.HasSuffix(got, tt.want) {
				t.Errorf("Generate() = %q, want suffix %q", got, tt.want)
			}
		})
	}
}

func TestGenerate_ColumnOrderMatters(t *testing.T) {
	ab, err := Generate("", "users", []string{"a", "b"}, KindUnique)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := Generate("", "users", []string{"b", "a"}, KindUnique)
	if err != nil {
		t.Fatal(err)
	}
	if ab == ba {
		t.Errorf("column order ignored: both produced %q", ab)
	}
	if ab != "users_a_b_uk" || ba != "users_b_a_uk" {
		t.Errorf("got %q and %q", ab, ba)
	}
}

func TestGenerate_InvalidArgument(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []string
	}{
		{"empty table", "", []string{"id"}},
		{"nil columns", "users", nil},
		{"empty columns", "users", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate("", tt.table, tt.columns, KindIndex)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("Generate() error = %v, want ErrInvalidArgument", err)
			}
			if got != "" {
				t.Errorf("Generate() = %q on error, want empty", got)
			}
		})
	}
}

func TestGenerate_SaturatedSegmentsFail(t *testing.T) {
	// 18 segments of at most two characters: nothing left to trim at 35 characters.
	cols := strings.Split("a,b,c,d,e,f,g,h,i,j,k,l,m,n,o,p", ",")
	_, err := Generate("", "t", cols, KindUnique)
	if !errors.Is(err, ErrLengthBudgetExceeded) {
		t.Fatalf("Generate() error = %v, want ErrLengthBudgetExceeded", err)
	}

	// Saturates partway through shortening under a tighter limit.
	_, err = New(20).Generate(Request{
		Table:   "orders",
		Columns: []string{"customer_id", "product_id", "warehouse_location"},
		Kind:    KindForeign,
	})
	if !errors.Is(err, ErrLengthBudgetExceeded) {
		t.Fatalf("Generate() with limit 20 error = %v, want ErrLengthBudgetExceeded", err)
	}
}

func TestNamer_ConfigurableLimit(t *testing.T) {
	req := Request{
		Table:   "orders",
		Columns: []string{"customer_id", "product_id", "warehouse_location"},
		Kind:    KindForeign,
	}

	got, err := New(63).Generate(req)
	if err != nil {
		t.Fatal(err)
	}
	if want := "orders_customer_id_product_id_warehouse_location_fk"; got != want {
		t.Errorf("Generate() with limit 63 = %q, want %q", got, want)
	}

	if l := New(0).Limit(); l != DefaultMaxLength {
		t.Errorf("New(0).Limit() = %d, want %d", l, DefaultMaxLength)
	}
	if l := New(-5).Limit(); l != DefaultMaxLength {
		t.Errorf("New(-5).Limit() = %d, want %d", l, DefaultMaxLength)
	}
}

func TestTrace(t *testing.T) {
	steps, err := Namer{}.Trace(Request{
		Table:   "orders",
		Columns: []string{"customer_id", "product_id", "warehouse_location"},
		Kind:    KindForeign,
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"orders_customer_id_product_id_warehouse_location_fk",
		"order_custome_id_produc_id_warehous_locatio_fk",
		"orde_custom_id_produ_id_warehou_locati_fk",
		"ord_custo_id_prod_id_wareho_locat_fk",
		"or_cust_id_pro_id_wareh_loca_fk",
		"or_cus_id_pr_id_ware_loc_fk",
	}
	if len(steps) != len(want) {
		t.Fatalf("Trace() returned %d steps, want %d: %v", len(steps), len(want), steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, steps[i], want[i])
		}
	}
}

func TestTrace_ShortNameHasSingleStep(t *testing.T) {
	steps, err := Namer{}.Trace(Request{Table: "users", Columns: []string{"email"}, Kind: KindUnique})
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 1 || steps[0] != "users_email_uk" {
		t.Errorf("Trace() = %v, want [users_email_uk]", steps)
	}
}

func TestGenerate_Concurrent(t *testing.T) {
	req := Request{Table: "orders", Columns: []string{"customer_id", "product_id", "warehouse_location"}, Kind: KindForeign}
	want, err := Namer{}.Generate(req)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Namer{}.Generate(req)
			if err != nil || got != want {
				t.Errorf("concurrent Generate() = %q, %v; want %q", got, err, want)
			}
		}()
	}
	wg.Wait()
}

func TestGenerate_ByteLimit(t *testing.T) {
	req := Request{Table: "订单明细", Columns: []string{"客户编号"}, Kind: KindIndex}

	got, err := New(20).Generate(req)
	if err != nil {
		t.Fatal(err)
	}
	if got != "订单明细_客户编号_index" {
		t.Errorf("character limit: got %q", got)
	}

	got, err = Namer{MaxLength: 20, Bytes: true}.Generate(req)
	if err != nil {
		t.Fatal(err)
	}
	if got != "订单_客户_ind" {
		t.Errorf("byte limit: got %q, want %q", got, "订单_客户_ind")
	}
	if len(got) > 20 {
		t.Errorf("%q is %d bytes, limit 20", got, len(got))
	}

	_, err = Namer{MaxLength: 10, Bytes: true}.Generate(req)
	if !errors.Is(err, ErrLengthBudgetExceeded) {
		t.Fatalf("err = %v, want ErrLengthBudgetExceeded", err)
	}
	if !strings.Contains(err.Error(), "16 bytes, limit is 10") {
		t.Errorf("err = %v", err)
	}
}
