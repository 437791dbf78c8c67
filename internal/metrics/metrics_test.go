package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesRecordedMetrics(t *testing.T) {
	RecordStoreOperation("put", 3*time.Millisecond, true)
	RecordBlobOperation("memory", "save", false)
	RecordTabSave(true)
	RecordSearch(time.Millisecond, 2)
	SetOpenTabs(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	for _, want := range []string{
		`codeworkspace_store_operations_total{operation="put",status="success"}`,
		`codeworkspace_blob_operations_total{backend="memory",operation="save",status="error"}`,
		`codeworkspace_tab_saves_total{status="success"}`,
		`codeworkspace_search_results_total`,
		`codeworkspace_open_tabs 3`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
