package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/jjsim/internal/config"
	"github.com/san-kum/jjsim/internal/experiment"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]float64)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.RunStarted("phase")
	r.StepsDone(100)
	r.StepsDone(50)
	r.Refactored()
	r.RunFinished(time.Millisecond, nil)
	r.RunStarted("voltage")
	r.RunFinished(time.Millisecond, errors.New("singular"))

	got := gather(t, reg)
	want := map[string]float64{
		"jjsim_runs_started_total{mode=phase}":    1,
		"jjsim_runs_started_total{mode=voltage}":  1,
		"jjsim_runs_finished_total{result=ok}":    1,
		"jjsim_runs_finished_total{result=error}": 1,
		"jjsim_steps_total":                       150,
		"jjsim_refactors_total":                   1,
		"jjsim_run_duration_seconds":              2,
		"jjsim_active_runs":                       0,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestRecorderWiredToSimulator(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	deck := config.GetPreset("jj-bias")
	exp := experiment.New(deck, 0, nil)
	if err := exp.Setup(nil); err != nil {
		t.Fatal(err)
	}
	exp.Simulator().SetRecorder(rec)
	res, err := exp.Run(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	got := gather(t, reg)
	if got["jjsim_runs_finished_total{result=ok}"] != 1 {
		t.Errorf("run not recorded: %v", got)
	}
	if got["jjsim_refactors_total"] != float64(res.Refactors) {
		t.Errorf("refactors = %v, want %d", got["jjsim_refactors_total"], res.Refactors)
	}
	if got["jjsim_steps_total"] == 0 || got["jjsim_steps_total"] > float64(res.Steps) {
		t.Errorf("steps = %v for %d simulated", got["jjsim_steps_total"], res.Steps)
	}

	path := filepath.Join(t.TempDir(), "jjsim.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "jjsim_steps_total") {
		t.Errorf("textfile missing counters:\n%s", data)
	}
}
