package recommend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type stubClassifier struct {
	answer string
	err    error
	calls  int
}

func (s *stubClassifier) Classify(context.Context, string) (string, error) {
	s.calls++
	return s.answer, s.err
}

type methodCounter map[string]int

func (m methodCounter) RecordRecommendation(method string) { m[method]++ }

func TestRecommend_RuleBased(t *testing.T) {
	counts := methodCounter{}
	svc := NewService(nil, counts, zerolog.Nop())

	rec, err := svc.Recommend(context.Background(), Request{Symptoms: "chest pain", UseOpenAI: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Recommendation{
		Specialty: "Cardiologist",
		Method:    MethodRuleBased,
		Message:   "Based on your symptoms, we recommend consulting a Cardiologist.",
		Symptoms:  "chest pain",
	}
	if *rec != want {
		t.Errorf("expected %+v, got %+v", want, *rec)
	}
	if counts[MethodRuleBased] != 1 {
		t.Errorf("expected rule-based recorded, got %v", counts)
	}
}

func TestRecommend_External(t *testing.T) {
	ext := &stubClassifier{answer: "Orthopedist"}
	svc := NewService(ext, methodCounter{}, zerolog.Nop())

	rec, err := svc.Recommend(context.Background(), Request{Symptoms: "knee hurts", UseOpenAI: true})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Specialty != "Orthopedist" || rec.Method != MethodOpenAI {
		t.Errorf("unexpected recommendation %+v", rec)
	}
}

func TestRecommend_ExternalOnlyWhenAsked(t *testing.T) {
	ext := &stubClassifier{answer: "Orthopedist"}
	svc := NewService(ext, methodCounter{}, zerolog.Nop())

	rec, _ := svc.Recommend(context.Background(), Request{Symptoms: "knee hurts"})
	if ext.calls != 0 || rec.Method != MethodRuleBased {
		t.Errorf("expected rules without use_openai, got %+v (calls %d)", rec, ext.calls)
	}
}

func TestRecommend_ExternalFailureFallsBack(t *testing.T) {
	ext := &stubClassifier{err: errors.New("timeout")}
	svc := NewService(ext, methodCounter{}, zerolog.Nop())

	rec, err := svc.Recommend(context.Background(), Request{Symptoms: "acne", UseOpenAI: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Specialty != "Dermatologist" || rec.Method != MethodRuleBased {
		t.Errorf("expected rule-based fallback, got %+v", rec)
	}
}

func TestRecommend_SymptomsRequired(t *testing.T) {
	svc := NewService(nil, methodCounter{}, zerolog.Nop())
	for _, s := range []string{"", "   "} {
		if _, err := svc.Recommend(context.Background(), Request{Symptoms: s}); !errors.Is(err, ErrSymptomsRequired) {
			t.Errorf("%q: expected ErrSymptomsRequired, got %v", s, err)
		}
	}
}

func TestHandler_RecommendDoctor(t *testing.T) {
	h := NewHandler(NewService(nil, methodCounter{}, zerolog.Nop()))
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/ai/recommend-doctor", strings.NewReader(`{"symptoms":"migraine"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.RecommendDoctor(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"specialty":"Neurologist"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/ai/recommend-doctor", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.RecommendDoctor(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest || he.Message != "Symptoms are required" {
		t.Errorf("expected 400 Symptoms are required, got %v", err)
	}
}
