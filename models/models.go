package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// User model
type User struct {
	BaseModel
	Username string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	Email    string `json:"email" gorm:"size:255;uniqueIndex"`
	Phone    string `json:"phone" gorm:"size:20"`
	Role     string `json:"role" gorm:"size:50;not null;default:'student';type:enum('owner','admin','teacher','student')"` // owner, admin, teacher, student
	Status   string `json:"status" gorm:"size:50;not null;default:'active';type:enum('active','inactive','suspended')"`    // active, inactive, suspended

	// Relationships
	Student *Student `json:"student,omitempty" gorm:"foreignKey:UserID"`
	Teacher *Teacher `json:"teacher,omitempty" gorm:"foreignKey:UserID"`
}

// Student model
type Student struct {
	BaseModel
	UserID      uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	FirstName   string     `json:"first_name" gorm:"size:100"`
	LastName    string     `json:"last_name" gorm:"size:100"`
	Nickname    string     `json:"nickname" gorm:"size:100"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	LevelTag    string     `json:"level_tag" gorm:"size:50"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Teacher model
type Teacher struct {
	BaseModel
	UserID    uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	FirstName string `json:"first_name" gorm:"size:100"`
	LastName  string `json:"last_name" gorm:"size:100"`
	Nickname  string `json:"nickname" gorm:"size:100"`
	Active    bool   `json:"active" gorm:"default:true"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Room model
type Room struct {
	BaseModel
	RoomName  string `json:"room_name" gorm:"size:100;not null"`
	Capacity  int    `json:"capacity" gorm:"not null"`
	Equipment JSON   `json:"equipment" gorm:"type:json"`
	Status    string `json:"status" gorm:"size:50;not null;default:'available';type:enum('available','occupied','maintenance')"` // available, occupied, maintenance
}

// Class model. A class owns its weekly slots, its curriculum dimensions and
// the bulk-generated session set. EndDate is derived unless EndDateManual is
// set, in which case EndDateNote records why.
type Class struct {
	BaseModel
	ClassName        string `json:"class_name" gorm:"size:255;not null"`
	LevelTag         string `json:"level_tag" gorm:"size:50"`
	RoomID           uint   `json:"room_id"`
	DefaultTeacherID uint   `json:"default_teacher_id"`
	TeacherIDs       JSON   `json:"teacher_ids" gorm:"type:json"` // combined teacher set after a merge
	Status           string `json:"status" gorm:"size:50;not null;default:'draft';type:enum('draft','active','completed','merged','archived')"`

	// Curriculum. Immutable once sessions exist; changing it means regenerating.
	PhaseCount             int `json:"phase_count" gorm:"not null;default:1"`
	SessionsPerPhase       int `json:"sessions_per_phase" gorm:"not null;default:1"`
	SessionDurationMinutes int `json:"session_duration_minutes" gorm:"not null;default:60"`

	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	EndDateManual bool       `json:"end_date_manual" gorm:"default:false"`
	EndDateNote   string     `json:"end_date_note" gorm:"size:500"`
	Notes         string     `json:"notes" gorm:"type:text"`

	// Relationships
	Room        Room           `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	Teacher     Teacher        `json:"teacher,omitempty" gorm:"foreignKey:DefaultTeacherID"`
	Slots       []ClassSlot    `json:"slots,omitempty" gorm:"foreignKey:ClassID"`
	Sessions    []ClassSession `json:"sessions,omitempty" gorm:"foreignKey:ClassID"`
	Enrollments []Enrollment   `json:"enrollments,omitempty" gorm:"foreignKey:ClassID"`
}

// ClassSlot is one weekly recurring meeting time. At most one slot per weekday.
type ClassSlot struct {
	BaseModel
	ClassID   uint   `json:"class_id" gorm:"not null;uniqueIndex:idx_class_weekday,priority:1"`
	Weekday   int    `json:"weekday" gorm:"not null;uniqueIndex:idx_class_weekday,priority:2"` // 0=Sunday .. 6=Saturday
	StartTime string `json:"start_time" gorm:"size:5;not null"`                                // "09:00"
	EndTime   string `json:"end_time" gorm:"size:5;not null"`
}

// ClassSession is one scheduled meeting. Identity within a class is
// (phase_number, phase_session_number); makeup sessions get fresh numbers
// past the curriculum's last index, never reused ones.
type ClassSession struct {
	BaseModel
	ClassID            uint       `json:"class_id" gorm:"not null;index"`
	PhaseNumber        int        `json:"phase_number" gorm:"not null"`
	PhaseSessionNumber int        `json:"phase_session_number" gorm:"not null"`
	ScheduledDate      time.Time  `json:"scheduled_date" gorm:"not null"`
	StartTime          string     `json:"start_time" gorm:"size:5;not null"`
	EndTime            string     `json:"end_time" gorm:"size:5;not null"`
	Status             string     `json:"status" gorm:"size:50;not null;default:'scheduled';type:enum('scheduled','completed','cancelled','rescheduled')"`
	MovedToDate        *time.Time `json:"moved_to_date"` // target date when status is rescheduled
	AssignedTeacherID  uint       `json:"assigned_teacher_id"`
	SubstituteTeacherID *uint     `json:"substitute_teacher_id"`
	CancelReason       string     `json:"cancel_reason" gorm:"type:text"`
	IsMakeup           bool       `json:"is_makeup" gorm:"default:false"`
	// Nullable so normal sessions insert NULL instead of 0
	MakeupForSessionID *uint  `json:"makeup_for_session_id" gorm:"default:null"`
	Notes              string `json:"notes" gorm:"type:text"`

	// Relationships
	Class Class `json:"class,omitempty" gorm:"foreignKey:ClassID"`
}

// Enrollment links a student to a class. Phases holds the JSON-encoded list
// of phase numbers the student attends (unioned when classes merge).
type Enrollment struct {
	BaseModel
	ClassID    uint      `json:"class_id" gorm:"not null;uniqueIndex:idx_class_student,priority:1"`
	StudentID  uint      `json:"student_id" gorm:"not null;uniqueIndex:idx_class_student,priority:2"`
	EnrolledAt time.Time `json:"enrolled_at" gorm:"not null"`
	Phases     JSON      `json:"phases" gorm:"type:json"`
	Status     string    `json:"status" gorm:"size:50;default:'active';type:enum('active','completed','dropped')"`

	// Relationships
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Suspension records one committed suspension workflow. Immutable once
// created; suspensions are not undoable (only merges are).
type Suspension struct {
	BaseModel
	ClassID            uint   `json:"class_id" gorm:"not null;index"`
	Reference          string `json:"reference" gorm:"size:36;not null;uniqueIndex"`
	Reason             string `json:"reason" gorm:"type:text;not null"`
	MakeupStrategy     string `json:"makeup_strategy" gorm:"size:50;not null;type:enum('add_to_last_phase','manual')"`
	AffectedSessionIDs JSON   `json:"affected_session_ids" gorm:"type:json"`
	MakeupSessionIDs   JSON   `json:"makeup_session_ids" gorm:"type:json"`
	CreatedByUserID    uint   `json:"created_by_user_id"`
}

// MergeHistory captures one merge with a full snapshot of every original
// class (schedule, sessions, enrollments, room/teacher) so the merge can be
// reversed. IsUndone flips exactly once.
type MergeHistory struct {
	BaseModel
	MergedClassID   uint       `json:"merged_class_id" gorm:"not null;index"`
	Reference       string     `json:"reference" gorm:"size:36;not null;uniqueIndex"`
	Snapshot        JSON       `json:"snapshot" gorm:"type:json;not null"`
	IsUndone        bool       `json:"is_undone" gorm:"default:false"`
	UndoneAt        *time.Time `json:"undone_at"`
	CreatedByUserID uint       `json:"created_by_user_id"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
