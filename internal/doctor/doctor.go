package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/basket/go-t/internal/config"
	"github.com/basket/go-t/internal/persistence"
)

type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "PASS", "FAIL", "WARN", "SKIP"
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type Diagnosis struct {
	Timestamp time.Time              `json:"timestamp"`
	System    SystemInfo             `json:"system"`
	List      string                 `json:"list"`
	Stats     *persistence.ScanStats `json:"stats,omitempty"`
	Results   []CheckResult          `json:"results"`
}

type SystemInfo struct {
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Go      string `json:"go_version"`
	Version string `json:"version"`
}

// Failed reports whether any check failed.
func (d Diagnosis) Failed() bool {
	for _, r := range d.Results {
		if r.Status == "FAIL" {
			return true
		}
	}
	return false
}

// Run executes all diagnostic checks for one list.
func Run(ctx context.Context, cfg *config.Config, list *persistence.ListFile, version string) Diagnosis {
	d := Diagnosis{
		Timestamp: time.Now().UTC(),
		System: SystemInfo{
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
			Go:      runtime.Version(),
			Version: version,
		},
	}
	if list != nil {
		d.List = list.Path()
	}

	d.Results = append(d.Results,
		checkConfig(cfg),
		checkTaskDir(list),
	)
	listResult, stats := checkList(ctx, list)
	d.Results = append(d.Results, listResult)
	d.Stats = stats
	d.Results = append(d.Results, checkDoneList(ctx, list))
	return d
}

func checkConfig(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Config", Status: "FAIL", Message: "Configuration not loaded"}
	}
	path := config.ConfigPath(cfg.HomeDir)
	if _, err := os.Stat(path); err != nil {
		return CheckResult{Name: "Config", Status: "PASS", Message: "Using defaults (no config.yaml)", Detail: path}
	}
	return CheckResult{Name: "Config", Status: "PASS", Message: fmt.Sprintf("Loaded from %s", path)}
}

func checkTaskDir(list *persistence.ListFile) CheckResult {
	if list == nil {
		return CheckResult{Name: "Task Dir", Status: "SKIP", Message: "No list selected"}
	}
	info, err := os.Stat(list.Dir)
	if err != nil {
		return CheckResult{Name: "Task Dir", Status: "FAIL", Message: fmt.Sprintf("Task dir unavailable: %v", err)}
	}
	if !info.IsDir() {
		return CheckResult{Name: "Task Dir", Status: "FAIL", Message: fmt.Sprintf("%s is not a directory", list.Dir)}
	}

	testFile := filepath.Join(list.Dir, ".t-write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return CheckResult{Name: "Task Dir", Status: "FAIL", Message: fmt.Sprintf("Task dir unwritable: %v", err)}
	}
	os.Remove(testFile)

	return CheckResult{Name: "Task Dir", Status: "PASS", Message: fmt.Sprintf("%s is writable", list.Dir)}
}

func checkList(ctx context.Context, list *persistence.ListFile) (CheckResult, *persistence.ScanStats) {
	if list == nil {
		return CheckResult{Name: "List", Status: "SKIP", Message: "No list selected"}, nil
	}
	if _, err := os.Stat(list.Path()); os.IsNotExist(err) {
		return CheckResult{Name: "List", Status: "PASS", Message: "List file not created yet (first add creates it)"}, nil
	}

	s, stats, err := list.Scan(ctx)
	if err != nil {
		return CheckResult{Name: "List", Status: "FAIL", Message: fmt.Sprintf("Read failed: %v", err)}, nil
	}

	res := CheckResult{
		Name:    "List",
		Status:  "PASS",
		Message: fmt.Sprintf("%d tasks in %d lines", s.Len(), stats.Lines),
	}
	switch {
	case stats.Duplicates > 0:
		res.Status = "WARN"
		res.Detail = fmt.Sprintf("%d lines share an id with an earlier line; the last one wins and the rest are dropped on the next save", stats.Duplicates)
	case stats.NoMetadata > 0:
		res.Status = "WARN"
		res.Detail = fmt.Sprintf("%d lines have no id metadata; ids are derived from text and written on the next save", stats.NoMetadata)
	}
	return res, &stats
}

func checkDoneList(ctx context.Context, list *persistence.ListFile) CheckResult {
	if list == nil {
		return CheckResult{Name: "Done List", Status: "SKIP", Message: "No list selected"}
	}
	if _, err := os.Stat(list.DonePath()); os.IsNotExist(err) {
		return CheckResult{Name: "Done List", Status: "SKIP", Message: "No finished tasks yet"}
	}
	done, err := list.LoadDone(ctx)
	if err != nil {
		return CheckResult{Name: "Done List", Status: "FAIL", Message: fmt.Sprintf("Read failed: %v", err)}
	}
	return CheckResult{Name: "Done List", Status: "PASS", Message: fmt.Sprintf("%d finished tasks", done.Len())}
}
