package pagination_test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/sentinel/pkg/pagination"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := pagination.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if diff := cmp.Diff(defaultConfig(), cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_PAGE_SIZE", "50")
		t.Setenv("TEST_MAX_PAGE", "200")

		cfg := pagination.Config{}
		err := cfg.Finalize(&pagination.ConfigEnv{
			DefaultPageSize: "TEST_PAGE_SIZE",
			MaxPageSize:     "TEST_MAX_PAGE",
		})
		if err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.DefaultPageSize != 50 || cfg.MaxPageSize != 200 {
			t.Errorf("got %+v", cfg)
		}
	})

	t.Run("default exceeds max", func(t *testing.T) {
		cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
		err := cfg.Finalize(nil)
		if err == nil || !strings.Contains(err.Error(), "cannot exceed") {
			t.Errorf("error = %v, want default/max violation", err)
		}
	})
}

func TestConfigMerge(t *testing.T) {
	base := defaultConfig()
	base.Merge(&pagination.Config{DefaultPageSize: 50})

	if base.DefaultPageSize != 50 {
		t.Errorf("DefaultPageSize = %d, want 50", base.DefaultPageSize)
	}
	if base.MaxPageSize != 100 {
		t.Errorf("MaxPageSize = %d, want 100 (unchanged)", base.MaxPageSize)
	}
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name string
		req  pagination.PageRequest
		want pagination.PageRequest
	}{
		{"zero values get defaults", pagination.PageRequest{}, pagination.PageRequest{Page: 1, PageSize: 20}},
		{"negative page corrected", pagination.PageRequest{Page: -1, PageSize: 10}, pagination.PageRequest{Page: 1, PageSize: 10}},
		{"page size clamped", pagination.PageRequest{Page: 1, PageSize: 500}, pagination.PageRequest{Page: 1, PageSize: 100}},
		{"valid values preserved", pagination.PageRequest{Page: 3, PageSize: 25}, pagination.PageRequest{Page: 3, PageSize: 25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize(defaultConfig())
			if diff := cmp.Diff(tt.want, tt.req); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 3, PageSize: 10}
	if got := req.Offset(); got != 20 {
		t.Errorf("Offset() = %d, want 20", got)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	t.Run("camel case params", func(t *testing.T) {
		values := url.Values{
			"page":     {"2"},
			"pageSize": {"15"},
			"search":   {"main st"},
			"sort":     {"Location,-Timestamp"},
		}

		got := pagination.PageRequestFromQuery(values, defaultConfig())

		search := "main st"
		want := pagination.PageRequest{
			Page:     2,
			PageSize: 15,
			Search:   &search,
			Sort: pagination.SortFields{
				{Field: "Location"},
				{Field: "Timestamp", Descending: true},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("snake case page size", func(t *testing.T) {
		got := pagination.PageRequestFromQuery(url.Values{"page_size": {"7"}}, defaultConfig())
		if got.PageSize != 7 {
			t.Errorf("PageSize = %d, want 7", got.PageSize)
		}
	})

	t.Run("empty params get defaults", func(t *testing.T) {
		got := pagination.PageRequestFromQuery(url.Values{}, defaultConfig())
		if got.Page != 1 || got.PageSize != 20 || got.Search != nil {
			t.Errorf("got %+v", got)
		}
	})
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		page           int
		wantTotalPages int
		wantHasNext    bool
	}{
		{"exact division", 100, 1, 5, true},
		{"remainder", 101, 6, 6, false},
		{"single page", 5, 1, 1, false},
		{"empty result", 0, 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{"a"}, tt.total, tt.page, 20)
			if result.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantTotalPages)
			}
			if result.HasNext != tt.wantHasNext {
				t.Errorf("HasNext = %v, want %v", result.HasNext, tt.wantHasNext)
			}
		})
	}
}

func TestNewPageResultJSON(t *testing.T) {
	result := pagination.NewPageResult[string](nil, 0, 1, 20)

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"data":[],"total":0,"page":1,"pageSize":20,"totalPages":1,"hasNext":false}`
	if string(data) != want {
		t.Errorf("json:\ngot  %s\nwant %s", data, want)
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	want := pagination.SortFields{
		{Field: "Location", Descending: false},
		{Field: "Timestamp", Descending: true},
	}

	inputs := map[string]string{
		"string": `"Location,-Timestamp"`,
		"array":  `[{"Field":"Location","Descending":false},{"Field":"Timestamp","Descending":true}]`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			var sf pagination.SortFields
			if err := json.Unmarshal([]byte(input), &sf); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if diff := cmp.Diff(want, sf); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	var bad pagination.SortFields
	if err := json.Unmarshal([]byte(`42`), &bad); err == nil {
		t.Error("expected error for numeric sort")
	}
}
