package stopmotion

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"
)

//go:embed templates/run_report.html
var runReportTemplate string

//go:embed templates/index.html
var indexTemplate string

var (
	runReportTmpl = template.Must(template.New("run").Parse(runReportTemplate))
	indexTmpl     = template.Must(template.New("index").Parse(indexTemplate))
)

const (
	// ReportTimeFormat names the per-run report directories.
	ReportTimeFormat = "20060102_150405"

	reportMetaFile = "report.json"
)

// RunMetadata is stored next to each report so the index can list runs
// without parsing HTML.
type RunMetadata struct {
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	Duration  string `json:"duration"`
	Shots     int    `json:"shots"`
	Success   bool   `json:"success"`
}

type reportShot struct {
	ShotRecord
	DataURL template.URL
}

type reportData struct {
	Name       string
	Success    bool
	Started    time.Time
	Duration   time.Duration
	Actions    []Action
	Shots      []reportShot
	TripReport string
	FinalView  template.HTML
}

// WriteReport writes an HTML report of result to
// <baseDir>/<name>/<start time>/index.html and returns its path. Shots are
// embedded as data URLs so the report stands alone.
func WriteReport(baseDir, name string, result *Result) (string, error) {
	started := result.Started
	if started.IsZero() {
		started = time.Now()
	}
	dir := filepath.Join(baseDir, name, started.Format(ReportTimeFormat))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	data := reportData{
		Name:      name,
		Success:   result.Success,
		Started:   started,
		Duration:  result.Duration.Round(time.Millisecond),
		Actions:   result.Actions,
		FinalView: ViewHTML(result.FinalView),
	}
	if !result.Success {
		data.TripReport = result.TripReport
	}
	for _, shot := range result.Shots {
		url, err := imageDataURL(shot.Path)
		if err != nil {
			return "", err
		}
		data.Shots = append(data.Shots, reportShot{ShotRecord: shot, DataURL: url})
	}

	path := filepath.Join(dir, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := runReportTmpl.Execute(f, data); err != nil {
		f.Close()
		return "", fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	meta, err := json.MarshalIndent(RunMetadata{
		Name:      name,
		Timestamp: started.Format(ReportTimeFormat),
		Duration:  data.Duration.String(),
		Shots:     len(result.Shots),
		Success:   result.Success,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, reportMetaFile), meta, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func imageDataURL(path string) (template.URL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read shot: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(data)), nil
}

// IndexEntry is one run listed in the report index.
type IndexEntry struct {
	RunMetadata
	Link string
}

// ScanReports finds every run report under baseDir, newest first.
func ScanReports(baseDir string) ([]IndexEntry, error) {
	var entries []IndexEntry
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != reportMetaFile {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil
		}
		link, err := filepath.Rel(baseDir, filepath.Join(filepath.Dir(path), "index.html"))
		if err != nil {
			return err
		}
		entries = append(entries, IndexEntry{RunMetadata: meta, Link: filepath.ToSlash(link)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(entries, func(a, b IndexEntry) int {
		switch {
		case a.Timestamp > b.Timestamp:
			return -1
		case a.Timestamp < b.Timestamp:
			return 1
		}
		return 0
	})
	return entries, nil
}

// WriteIndex writes <baseDir>/index.html linking every run report and
// returns the number of runs listed.
func WriteIndex(baseDir string) (int, error) {
	entries, err := ScanReports(baseDir)
	if err != nil {
		return 0, fmt.Errorf("scan reports: %w", err)
	}

	f, err := os.Create(filepath.Join(baseDir, "index.html"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	err = indexTmpl.Execute(f, struct {
		Runs        []IndexEntry
		GeneratedAt time.Time
	}{entries, time.Now()})
	if err != nil {
		return 0, fmt.Errorf("render index: %w", err)
	}
	return len(entries), nil
}
