package repository

import (
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

func (r *AttemptRepository) Create(attempt *model.QuizAttempt) error {
	return r.DB.Omit("Quiz", "Answers").Create(attempt).Error
}

func (r *AttemptRepository) Update(attempt *model.QuizAttempt) error {
	return r.DB.Omit("Quiz", "Answers").Save(attempt).Error
}

func (r *AttemptRepository) FindByID(id uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.First(&attempt, id).Error
	return &attempt, err
}

func (r *AttemptRepository) FindForUpdate(id uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).First(&attempt, id).Error
	return &attempt, err
}

func (r *AttemptRepository) FindWithAnswers(id uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.Preload("Quiz").
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("question_id ASC") }).
		First(&attempt, id).Error
	return &attempt, err
}

func (r *AttemptRepository) CountByStudentQuiz(studentID, quizID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) MaxAttemptNumber(studentID, quizID uint) (int, error) {
	var max int
	err := r.DB.Model(&model.QuizAttempt{}).
		Select("COALESCE(MAX(attempt_number), 0)").
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Scan(&max).Error
	return max, err
}

func (r *AttemptRepository) ListByStudentQuiz(studentID, quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) BestPercentage(studentID, quizID uint) (*float64, error) {
	var best *float64
	err := r.DB.Model(&model.QuizAttempt{}).
		Select("MAX(percentage)").
		Where("student_id = ? AND quiz_id = ? AND status IN ?", studentID, quizID,
			[]model.AttemptStatus{model.AttemptCompleted, model.AttemptTimedOut}).
		Scan(&best).Error
	return best, err
}

func (r *AttemptRepository) RecentByStudent(studentID uint, limit int) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Preload("Quiz").
		Where("student_id = ?", studentID).
		Order("started_at DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// ListInProgressWithTimeLimit 有时限且开始时间早于 startedBefore 的进行中答题
func (r *AttemptRepository) ListInProgressWithTimeLimit(startedBefore time.Time) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Preload("Quiz").
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id").
		Where("quiz_attempts.status = ? AND quizzes.time_limit_minutes IS NOT NULL AND quiz_attempts.started_at < ?",
			model.AttemptInProgress, startedBefore).
		Find(&attempts).Error
	return attempts, err
}

// UpsertAnswer 每个 (attempt, question) 仅保留一条作答
func (r *AttemptRepository) UpsertAnswer(answer *model.StudentAnswer) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selected_choice_id", "text_answer", "is_auto_graded", "points_earned", "updated_at"}),
	}).Create(answer).Error
}

func (r *AttemptRepository) AnswersByAttempt(attemptID uint) ([]model.StudentAnswer, error) {
	var answers []model.StudentAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Order("question_id ASC").Find(&answers).Error
	return answers, err
}

func (r *AttemptRepository) FindAnswer(id uint) (*model.StudentAnswer, error) {
	var answer model.StudentAnswer
	err := r.DB.First(&answer, id).Error
	return &answer, err
}

func (r *AttemptRepository) FindAnswerByQuestion(attemptID, questionID uint) (*model.StudentAnswer, error) {
	var answer model.StudentAnswer
	err := r.DB.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).First(&answer).Error
	return &answer, err
}

func (r *AttemptRepository) SaveAnswer(answer *model.StudentAnswer) error {
	return r.DB.Save(answer).Error
}

// CountPendingManualGrading 讲师课程下已交卷但尚未人工评分的主观题作答数
func (r *AttemptRepository) CountPendingManualGrading(instructorID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.StudentAnswer{}).
		Joins("JOIN quiz_attempts ON quiz_attempts.id = student_answers.attempt_id").
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id AND quizzes.deleted_at IS NULL").
		Joins("JOIN courses ON courses.id = quizzes.course_id AND courses.deleted_at IS NULL").
		Where("courses.instructor_id = ? AND student_answers.is_auto_graded = ? AND student_answers.graded_at IS NULL AND quiz_attempts.status IN ?",
			instructorID, false, []model.AttemptStatus{model.AttemptCompleted, model.AttemptTimedOut}).
		Count(&count).Error
	return count, err
}
