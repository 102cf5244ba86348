package services

import (
	"time"

	"classplanner_go/database"
	"classplanner_go/models"
	"classplanner_go/utils"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ScheduleManager runs the recurring maintenance jobs: warming the holiday
// cache for the current scheduling window and sweeping sessions whose date
// has passed without a status update.
type ScheduleManager struct {
	cron     *cron.Cron
	holidays *HolidayService
}

func NewScheduleManager(holidays *HolidayService) *ScheduleManager {
	return &ScheduleManager{
		cron:     cron.New(),
		holidays: holidays,
	}
}

// Start registers and launches the cron jobs.
func (sm *ScheduleManager) Start() {
	if _, err := sm.cron.AddFunc("0 5 * * *", sm.warmHolidayCache); err != nil {
		logrus.WithError(err).Error("Failed to register holiday cache job")
	}
	if _, err := sm.cron.AddFunc("0 * * * *", sm.sweepOverdueSessions); err != nil {
		logrus.WithError(err).Error("Failed to register overdue session sweep")
	}
	sm.cron.Start()

	// Warm once at boot so the first schedule preview does not block on the feed.
	go sm.warmHolidayCache()

	logrus.Info("Schedule manager started")
}

// Stop halts the cron scheduler.
func (sm *ScheduleManager) Stop() {
	sm.cron.Stop()
}

func (sm *ScheduleManager) warmHolidayCache() {
	year := time.Now().Year()
	if _, err := sm.holidays.GetHolidays(year, year+1); err != nil {
		logrus.WithError(err).Warn("Holiday cache warm-up failed")
		return
	}
	logrus.WithField("years", []int{year, year + 1}).Debug("Holiday cache warmed")
}

// sweepOverdueSessions flags sessions whose scheduled date has passed while
// still marked scheduled. They are left for the attendance flow to resolve;
// this only surfaces them in the logs.
func (sm *ScheduleManager) sweepOverdueSessions() {
	today := utils.DateOf(time.Now())

	var count int64
	err := database.DB.Model(&models.ClassSession{}).
		Where("status = ? AND scheduled_date < ?", SessionStatusScheduled, today.Time()).
		Count(&count).Error
	if err != nil {
		logrus.WithError(err).Error("Overdue session sweep failed")
		return
	}
	if count > 0 {
		logrus.WithField("count", count).Warn("Sessions past their date without a status update")
	}
}
