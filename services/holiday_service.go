package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"classplanner_go/config"
	"classplanner_go/database"
	"classplanner_go/utils"

	"github.com/sirupsen/logrus"
)

// HolidayResponse represents the Thai holiday API response
type HolidayResponse struct {
	VCALENDAR []struct {
		VEVENT []struct {
			DTStart string `json:"DTSTART"`
			Summary string `json:"SUMMARY"`
		} `json:"VEVENT"`
	} `json:"VCALENDAR"`
}

// HolidayService provides the national-holiday calendar the schedulers need.
// Fetched windows are cached in Redis keyed by year range; population is
// idempotent, so concurrent warm-ups are harmless. Without Redis every call
// falls through to the upstream feed.
type HolidayService struct {
	httpClient *http.Client
}

func NewHolidayService() *HolidayService {
	return &HolidayService{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

const defaultHolidayCacheTTL = 7 * 24 * time.Hour

func holidayCacheTTL() time.Duration {
	if config.AppConfig != nil && config.AppConfig.HolidayCacheTTL > 0 {
		return config.AppConfig.HolidayCacheTTL
	}
	return defaultHolidayCacheTTL
}

func holidayFeedBaseURL() string {
	if config.AppConfig != nil && config.AppConfig.HolidayFeedBaseURL != "" {
		return config.AppConfig.HolidayFeedBaseURL
	}
	return "https://www.myhora.com/calendar/ical/holiday.aspx"
}

// GetHolidays returns the holiday set for the inclusive year range.
func (s *HolidayService) GetHolidays(startYear, endYear int) (map[utils.Date]bool, error) {
	if endYear < startYear {
		return nil, NewValidationError("year_range", "end year %d before start year %d", endYear, startYear)
	}

	cacheKey := fmt.Sprintf("holidays:%d-%d", startYear, endYear)
	if cached := s.readCache(cacheKey); cached != nil {
		return cached, nil
	}

	holidays := make(map[utils.Date]bool)
	for year := startYear; year <= endYear; year++ {
		dates, err := s.fetchYear(year)
		if err != nil {
			return nil, err
		}
		for _, date := range dates {
			holidays[date] = true
		}
	}

	s.writeCache(cacheKey, holidays)
	return holidays, nil
}

// GetHolidaysForDates returns the holiday set covering [start, end].
func (s *HolidayService) GetHolidaysForDates(start, end utils.Date) (map[utils.Date]bool, error) {
	return s.GetHolidays(start.Year, end.Year)
}

// fetchYear pulls one year of Thai national holidays from the public
// iCal-as-JSON feed. Years are Buddhist calendar on the wire.
func (s *HolidayService) fetchYear(year int) ([]utils.Date, error) {
	buddhistYear := year + 543
	url := fmt.Sprintf("%s?%d.json", holidayFeedBaseURL(), buddhistYear)

	resp, err := s.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holidays for year %d: %w", year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday feed returned %d for year %d", resp.StatusCode, year)
	}

	var holidayResp HolidayResponse
	if err := json.NewDecoder(resp.Body).Decode(&holidayResp); err != nil {
		return nil, fmt.Errorf("failed to decode holiday response for year %d: %w", year, err)
	}

	var dates []utils.Date
	for _, calendar := range holidayResp.VCALENDAR {
		for _, event := range calendar.VEVENT {
			if dateStr := event.DTStart; dateStr != "" {
				if t, err := time.Parse("20060102", dateStr); err == nil {
					dates = append(dates, utils.DateOf(t))
				}
			}
		}
	}

	return dates, nil
}

func (s *HolidayService) readCache(key string) map[utils.Date]bool {
	client := database.GetRedisClient()
	if client == nil {
		return nil
	}

	raw, err := client.Get(context.Background(), key).Result()
	if err != nil {
		return nil
	}

	var dateStrings []string
	if err := json.Unmarshal([]byte(raw), &dateStrings); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Corrupt holiday cache entry, refetching")
		return nil
	}

	holidays := make(map[utils.Date]bool, len(dateStrings))
	for _, ds := range dateStrings {
		date, err := utils.ParseDate(ds)
		if err != nil {
			continue
		}
		holidays[date] = true
	}
	return holidays
}

func (s *HolidayService) writeCache(key string, holidays map[utils.Date]bool) {
	client := database.GetRedisClient()
	if client == nil {
		return
	}

	dateStrings := make([]string, 0, len(holidays))
	for date := range holidays {
		dateStrings = append(dateStrings, date.String())
	}
	raw, err := json.Marshal(dateStrings)
	if err != nil {
		return
	}

	if err := client.Set(context.Background(), key, raw, holidayCacheTTL()).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to cache holiday window")
	}
}
