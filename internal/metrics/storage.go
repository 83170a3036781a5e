package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type Storage struct {
	baseDir string
}

const (
	userSettingsFile = "settings.json"
	// usageStatsDir matches SPEC_FULL.md's named persisted-state directory
	// verbatim ("a usage_stats/ directory holds per-day JSON metrics
	// files"), replacing the teacher's own "daily" directory name.
	usageStatsDir = "usage_stats"
)

func NewStorage(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metrics directory: %v", err)
	}

	statsDir := filepath.Join(baseDir, usageStatsDir)
	if err := os.MkdirAll(statsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create usage stats directory: %v", err)
	}

	return &Storage{
		baseDir: baseDir,
	}, nil
}

// AccumulateSession folds one session's numbers into today's persisted
// UsageStats. Unlike the teacher's SaveSession, there is no per-session
// list to append to — UsageStats is a running aggregate only, per
// SPEC_FULL.md's named shape.
func (s *Storage) AccumulateSession(session SessionResult) error {
	date := time.Now().Format("2006-01-02")

	stats, err := s.GetUsageStats(date)
	if err != nil {
		stats = &UsageStats{Date: date}
	}

	stats.SessionCount++
	stats.WordCount += session.WordCount
	stats.RecordingSeconds += session.RecordingTime.Seconds()
	stats.EstimatedTimeSavedSeconds += session.TimeSaved.Seconds()

	return s.saveUsageStats(stats)
}

func (s *Storage) GetUsageStats(date string) (*UsageStats, error) {
	filePath := filepath.Join(s.baseDir, usageStatsDir, fmt.Sprintf("%s.json", date))

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return &UsageStats{Date: date}, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var stats UsageStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (s *Storage) saveUsageStats(stats *UsageStats) error {
	filePath := filepath.Join(s.baseDir, usageStatsDir, fmt.Sprintf("%s.json", stats.Date))

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0644)
}

func (s *Storage) GetTotalStats() (*TotalStats, error) {
	statsDir := filepath.Join(s.baseDir, usageStatsDir)

	files, err := os.ReadDir(statsDir)
	if err != nil {
		return &TotalStats{}, nil // Return empty totals if directory doesn't exist
	}

	total := &TotalStats{}

	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".json" {
			filePath := filepath.Join(statsDir, file.Name())

			data, err := os.ReadFile(filePath)
			if err != nil {
				continue // Skip problematic files
			}

			var stats UsageStats
			if err := json.Unmarshal(data, &stats); err != nil {
				continue // Skip problematic files
			}

			total.TotalWords += stats.WordCount
			total.TotalSessions += stats.SessionCount
			total.TotalTimeSaved += time.Duration(stats.EstimatedTimeSavedSeconds * float64(time.Second))
		}
	}

	// Calculate averages
	if total.TotalSessions > 0 {
		total.AvgWordsPerSession = total.TotalWords / total.TotalSessions
		total.AvgTimeSavedPerSession = total.TotalTimeSaved / time.Duration(total.TotalSessions)
	}

	return total, nil
}

func (s *Storage) GetWeeklyStats(startDate time.Time) ([]*UsageStats, error) {
	var weekly []*UsageStats

	for i := 0; i < 7; i++ {
		date := startDate.AddDate(0, 0, i).Format("2006-01-02")
		stats, err := s.GetUsageStats(date)
		if err != nil {
			continue // Skip problematic days
		}
		weekly = append(weekly, stats)
	}

	return weekly, nil
}

func (s *Storage) GetRecentDays(days int) ([]*UsageStats, error) {
	var recent []*UsageStats

	for i := days - 1; i >= 0; i-- {
		date := time.Now().AddDate(0, 0, -i).Format("2006-01-02")
		stats, err := s.GetUsageStats(date)
		if err != nil {
			continue // Skip problematic days
		}
		recent = append(recent, stats)
	}

	return recent, nil
}

func (s *Storage) SaveUserSettings(settings *UserSettings) error {
	filePath := filepath.Join(s.baseDir, userSettingsFile)

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0644)
}

func (s *Storage) LoadUserSettings() (*UserSettings, error) {
	filePath := filepath.Join(s.baseDir, userSettingsFile)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("user settings not found")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var settings UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

func (s *Storage) ClearAllStats() error {
	statsDir := filepath.Join(s.baseDir, usageStatsDir)

	files, err := os.ReadDir(statsDir)
	if err != nil {
		return nil // Directory doesn't exist, nothing to clear
	}

	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".json" {
			filePath := filepath.Join(statsDir, file.Name())
			if err := os.Remove(filePath); err != nil {
				return fmt.Errorf("failed to remove %s: %v", file.Name(), err)
			}
		}
	}

	return nil
}

func (s *Storage) GetAllUsageStats() ([]*UsageStats, error) {
	statsDir := filepath.Join(s.baseDir, usageStatsDir)

	files, err := os.ReadDir(statsDir)
	if err != nil {
		return []*UsageStats{}, nil
	}

	var fileNames []string
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".json" {
			fileNames = append(fileNames, file.Name())
		}
	}

	// Sort file names to get chronological order
	sort.Strings(fileNames)

	var all []*UsageStats
	for _, fileName := range fileNames {
		filePath := filepath.Join(statsDir, fileName)

		data, err := os.ReadFile(filePath)
		if err != nil {
			continue
		}

		var stats UsageStats
		if err := json.Unmarshal(data, &stats); err != nil {
			continue
		}

		all = append(all, &stats)
	}

	return all, nil
}
