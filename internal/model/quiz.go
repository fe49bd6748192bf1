package model

import "time"

type QuizType string

const (
	QuizPractice   QuizType = "practice"
	QuizGraded     QuizType = "graded"
	QuizFinal      QuizType = "final"
	QuizAssessment QuizType = "assessment"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Essay:
		return true
	}
	return false
}

// AutoGraded 选择类题目按选项自动判分
func (t QuestionType) AutoGraded() bool {
	return t == MultipleChoice || t == TrueFalse
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptTimedOut   AttemptStatus = "timed_out"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// Terminal 除 in_progress 外均为终态
func (s AttemptStatus) Terminal() bool {
	return s != AttemptInProgress
}

// swagger:model Quiz
type Quiz struct {
	BaseModel
	Title              string     `gorm:"size:200;not null" json:"title"`
	Description        string     `gorm:"type:text" json:"description"`
	Type               QuizType   `gorm:"size:20;default:'practice'" json:"type"`
	CourseID           uint       `gorm:"index;not null" json:"courseId"`
	ModuleID           *uint      `gorm:"index" json:"moduleId,omitempty"`
	LessonID           *uint      `gorm:"index" json:"lessonId,omitempty"`
	TimeLimitMinutes   *int       `json:"timeLimitMinutes,omitempty"`
	MaxAttempts        int        `gorm:"not null" json:"maxAttempts"`
	PassPercentage     float64    `gorm:"type:decimal(5,2);not null" json:"passPercentage"`
	ShowCorrectAnswers bool       `json:"showCorrectAnswers"`
	IsPublished        bool       `gorm:"default:false" json:"isPublished"`
	AvailableFrom      *time.Time `json:"availableFrom,omitempty"`
	AvailableUntil     *time.Time `json:"availableUntil,omitempty"`
	Order              int        `gorm:"column:sort_order;default:0" json:"order"`

	Questions []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// IsAvailable 已发布且处于开放时间窗口内
func (q *Quiz) IsAvailable(now time.Time) bool {
	if !q.IsPublished {
		return false
	}
	if q.AvailableFrom != nil && now.Before(*q.AvailableFrom) {
		return false
	}
	if q.AvailableUntil != nil && now.After(*q.AvailableUntil) {
		return false
	}
	return true
}

// swagger:model Question
type Question struct {
	BaseModel
	QuizID      uint         `gorm:"index;not null" json:"quizId"`
	Type        QuestionType `gorm:"size:20;default:'multiple_choice'" json:"type"`
	Text        string       `gorm:"type:text;not null" json:"text"`
	Explanation string       `gorm:"type:text" json:"explanation,omitempty"`
	Points      int          `gorm:"default:1" json:"points"`
	Order       int          `gorm:"column:sort_order;default:0" json:"order"`

	Choices []AnswerChoice `gorm:"foreignKey:QuestionID" json:"choices,omitempty"`
}

func (Question) TableName() string {
	return "quiz_questions"
}

// swagger:model AnswerChoice
type AnswerChoice struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Text       string `gorm:"size:500;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Order      int    `gorm:"column:sort_order;default:0" json:"order"`
}

func (AnswerChoice) TableName() string {
	return "answer_choices"
}

// swagger:model QuizAttempt
type QuizAttempt struct {
	RecordModel
	StudentID        uint          `gorm:"uniqueIndex:idx_attempt_student_quiz_number;not null" json:"studentId"`
	QuizID           uint          `gorm:"uniqueIndex:idx_attempt_student_quiz_number;index;not null" json:"quizId"`
	AttemptNumber    int           `gorm:"uniqueIndex:idx_attempt_student_quiz_number;not null" json:"attemptNumber"`
	Status           AttemptStatus `gorm:"size:20;default:'in_progress';index" json:"status"`
	StartedAt        time.Time     `json:"startedAt"`
	SubmittedAt      *time.Time    `json:"submittedAt,omitempty"`
	TimeTakenMinutes *int          `json:"timeTakenMinutes,omitempty"`
	Score            *float64      `gorm:"type:decimal(7,2)" json:"score"`
	MaxScore         *int          `json:"maxScore"`
	Percentage       *float64      `gorm:"type:decimal(5,2)" json:"percentage"`
	Passed           *bool         `json:"passed"`
	IPAddress        string        `gorm:"size:45" json:"-"`
	UserAgent        string        `gorm:"size:255" json:"-"`

	Quiz    *Quiz           `gorm:"foreignKey:QuizID" json:"quiz,omitempty"`
	Answers []StudentAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// IsTimedOut 设置了时限、仍在作答且已超时
func (a *QuizAttempt) IsTimedOut(quiz *Quiz, now time.Time) bool {
	if quiz == nil || quiz.TimeLimitMinutes == nil || a.Status != AttemptInProgress {
		return false
	}
	limit := time.Duration(*quiz.TimeLimitMinutes) * time.Minute
	return now.Sub(a.StartedAt) > limit
}

// RemainingTimeSeconds 无时限或已结束时返回 nil
func (a *QuizAttempt) RemainingTimeSeconds(quiz *Quiz, now time.Time) *int {
	if quiz == nil || quiz.TimeLimitMinutes == nil || a.Status != AttemptInProgress {
		return nil
	}
	deadline := a.StartedAt.Add(time.Duration(*quiz.TimeLimitMinutes) * time.Minute)
	remaining := int(deadline.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// swagger:model StudentAnswer
type StudentAnswer struct {
	RecordModel
	AttemptID          uint       `gorm:"uniqueIndex:idx_answer_attempt_question;not null" json:"attemptId"`
	QuestionID         uint       `gorm:"uniqueIndex:idx_answer_attempt_question;not null" json:"questionId"`
	SelectedChoiceID   *uint      `json:"selectedChoiceId,omitempty"`
	TextAnswer         string     `gorm:"type:text" json:"textAnswer"`
	IsAutoGraded       bool       `json:"isAutoGraded"`
	PointsEarned       float64    `gorm:"type:decimal(7,2);default:0" json:"pointsEarned"`
	InstructorFeedback string     `gorm:"type:text" json:"instructorFeedback,omitempty"`
	GradedByID         *uint      `json:"gradedById,omitempty"`
	GradedAt           *time.Time `json:"gradedAt,omitempty"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}
