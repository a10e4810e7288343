package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestInstrumentPreservesStatus(t *testing.T) {
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/addUser", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status=%d, want %d", rr.Code, http.StatusTeapot)
	}
}

func TestObserveDispatchResultLabels(t *testing.T) {
	before := dispatchCount(t, "admin", "addUser", "ok")
	ObserveDispatch("admin", "addUser", 0)
	if got := dispatchCount(t, "admin", "addUser", "ok"); got != before+1 {
		t.Fatalf("ok counter=%v, want %v", got, before+1)
	}

	before = dispatchCount(t, "admin", "addUser", "1002")
	ObserveDispatch("admin", "addUser", 1002)
	if got := dispatchCount(t, "admin", "addUser", "1002"); got != before+1 {
		t.Fatalf("error counter=%v, want %v", got, before+1)
	}
}

func dispatchCount(t *testing.T, domain, operation, result string) float64 {
	t.Helper()
	c, err := dispatchOperationsTotal.GetMetricWithLabelValues(domain, operation, result)
	if err != nil {
		t.Fatalf("get metric: %v", err)
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
