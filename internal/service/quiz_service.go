package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 分配答题序号遇到唯一索引冲突时的最大重试次数
const maxStartAttemptRetries = 3

type QuizService struct {
	DB             *gorm.DB
	QuizRepo       *repository.QuizRepository
	AttemptRepo    *repository.AttemptRepository
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ActivityRepo   *repository.ActivityRepository
	Enrollments    *EnrollmentService
	Cfg            config.QuizConfig
}

func NewQuizService(
	db *gorm.DB,
	quizRepo *repository.QuizRepository,
	attemptRepo *repository.AttemptRepository,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	activityRepo *repository.ActivityRepository,
	enrollments *EnrollmentService,
	cfg config.QuizConfig,
) *QuizService {
	return &QuizService{
		DB:             db,
		QuizRepo:       quizRepo,
		AttemptRepo:    attemptRepo,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		ActivityRepo:   activityRepo,
		Enrollments:    enrollments,
		Cfg:            cfg,
	}
}

// QuizInput 创建试卷参数
type QuizInput struct {
	CourseID           uint           `json:"courseId" binding:"required"`
	ModuleID           *uint          `json:"moduleId"`
	LessonID           *uint          `json:"lessonId"`
	Title              string         `json:"title" binding:"required"`
	Description        string         `json:"description"`
	Type               model.QuizType `json:"type"`
	TimeLimitMinutes   *int           `json:"timeLimitMinutes"`
	MaxAttempts        int            `json:"maxAttempts"`
	PassPercentage     *float64       `json:"passPercentage"`
	ShowCorrectAnswers bool           `json:"showCorrectAnswers"`
	AvailableFrom      *time.Time     `json:"availableFrom"`
	AvailableUntil     *time.Time     `json:"availableUntil"`
	Order              int            `json:"order"`
}

// ChoiceInput 选项参数
type ChoiceInput struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
	Order     int    `json:"order"`
}

// QuestionInput 题目参数
type QuestionInput struct {
	Type        model.QuestionType `json:"type" binding:"required"`
	Text        string             `json:"text" binding:"required"`
	Explanation string             `json:"explanation"`
	Points      int                `json:"points"`
	Order       int                `json:"order"`
	Choices     []ChoiceInput      `json:"choices"`
}

// AnswerInput 作答内容
type AnswerInput struct {
	QuestionID uint   `json:"questionId"`
	ChoiceID   *uint  `json:"choiceId"`
	Text       string `json:"text"`
}

// AttemptMeta 答题客户端信息
type AttemptMeta struct {
	IPAddress string
	UserAgent string
}

// AttemptView 答题详情与计时信息
type AttemptView struct {
	*model.QuizAttempt
	IsTimedOut           bool `json:"isTimedOut"`
	RemainingTimeSeconds *int `json:"remainingTimeSeconds,omitempty"`
}

// QuizView 学生视角的试卷，不包含正确答案
type QuizView struct {
	ID               uint           `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Type             model.QuizType `json:"type"`
	CourseID         uint           `json:"courseId"`
	TimeLimitMinutes *int           `json:"timeLimitMinutes,omitempty"`
	MaxAttempts      int            `json:"maxAttempts"`
	PassPercentage   float64        `json:"passPercentage"`
	TotalPoints      int            `json:"totalPoints"`
	Questions        []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID      uint               `json:"id"`
	Type    model.QuestionType `json:"type"`
	Text    string             `json:"text"`
	Points  int                `json:"points"`
	Order   int                `json:"order"`
	Choices []ChoiceView       `json:"choices,omitempty"`
}

type ChoiceView struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type quizTx struct {
	quizzes  *repository.QuizRepository
	attempts *repository.AttemptRepository
	progress progressTx
}

func (s *QuizService) withTx(tx *gorm.DB) quizTx {
	return quizTx{
		quizzes:  s.QuizRepo.WithTx(tx),
		attempts: s.AttemptRepo.WithTx(tx),
		progress: s.Enrollments.withTx(tx),
	}
}

// ownedCourse 课程必须属于该讲师
func ownedCourse(repo *repository.CourseRepository, instructorID, courseID uint) (*model.Course, error) {
	course, err := repo.FindByID(courseID)
	if err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	if course.InstructorID != instructorID {
		return nil, util.ErrNotCourseOwner
	}
	return course, nil
}

// CreateQuiz 创建试卷，未指定的次数与及格线取配置默认值
func (s *QuizService) CreateQuiz(ctx context.Context, instructorID uint, input QuizInput) (*model.Quiz, error) {
	repos := s.withTx(s.DB.WithContext(ctx))
	if _, err := ownedCourse(repos.progress.courses, instructorID, input.CourseID); err != nil {
		return nil, err
	}

	if input.ModuleID != nil {
		module, err := repos.progress.courses.FindModule(*input.ModuleID)
		if err != nil {
			return nil, notFound(err, util.ErrModuleNotFound)
		}
		if module.CourseID != input.CourseID {
			return nil, util.ErrModuleNotFound
		}
	}
	if input.LessonID != nil {
		if _, err := lessonInCourse(repos.progress.courses, input.CourseID, *input.LessonID); err != nil {
			return nil, err
		}
	}

	quiz := &model.Quiz{
		Title:              input.Title,
		Description:        input.Description,
		Type:               input.Type,
		CourseID:           input.CourseID,
		ModuleID:           input.ModuleID,
		LessonID:           input.LessonID,
		TimeLimitMinutes:   input.TimeLimitMinutes,
		MaxAttempts:        input.MaxAttempts,
		ShowCorrectAnswers: input.ShowCorrectAnswers,
		AvailableFrom:      input.AvailableFrom,
		AvailableUntil:     input.AvailableUntil,
		Order:              input.Order,
	}
	if quiz.Type == "" {
		quiz.Type = model.QuizPractice
	}
	if quiz.MaxAttempts == 0 {
		quiz.MaxAttempts = s.Cfg.DefaultMaxAttempts
	}
	quiz.PassPercentage = s.Cfg.DefaultPassPercentage
	if input.PassPercentage != nil {
		quiz.PassPercentage = *input.PassPercentage
	}

	if err := validateQuiz(quiz); err != nil {
		return nil, err
	}
	if err := repos.quizzes.Create(quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

func validateQuiz(q *model.Quiz) error {
	switch {
	case q.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1", util.ErrValidation)
	case q.PassPercentage < 0 || q.PassPercentage > 100:
		return fmt.Errorf("%w: pass percentage must be within [0, 100]", util.ErrValidation)
	case q.TimeLimitMinutes != nil && *q.TimeLimitMinutes < 1:
		return fmt.Errorf("%w: time limit must be positive", util.ErrValidation)
	case q.AvailableFrom != nil && q.AvailableUntil != nil && q.AvailableUntil.Before(*q.AvailableFrom):
		return fmt.Errorf("%w: availability window ends before it starts", util.ErrValidation)
	}
	return nil
}

// SetPublished 发布或下线试卷
func (s *QuizService) SetPublished(ctx context.Context, instructorID, quizID uint, published bool) (*model.Quiz, error) {
	repos := s.withTx(s.DB.WithContext(ctx))
	quiz, err := repos.quizzes.FindByID(quizID)
	if err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	if _, err := ownedCourse(repos.progress.courses, instructorID, quiz.CourseID); err != nil {
		return nil, err
	}
	quiz.IsPublished = published
	if err := repos.quizzes.Update(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// AddQuestion 添加题目，选择类题目至少两个选项且至少一个正确
func (s *QuizService) AddQuestion(ctx context.Context, instructorID, quizID uint, input QuestionInput) (*model.Question, error) {
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown question type %q", util.ErrValidation, input.Type)
	}
	if input.Points == 0 {
		input.Points = 1
	}
	if input.Points < 0 {
		return nil, fmt.Errorf("%w: points must be positive", util.ErrValidation)
	}
	if input.Type.AutoGraded() {
		correct := 0
		for _, c := range input.Choices {
			if c.IsCorrect {
				correct++
			}
		}
		if len(input.Choices) < 2 || correct == 0 {
			return nil, fmt.Errorf("%w: choice questions need at least two choices and one correct answer", util.ErrValidation)
		}
	}

	repos := s.withTx(s.DB.WithContext(ctx))
	quiz, err := repos.quizzes.FindByID(quizID)
	if err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	if _, err := ownedCourse(repos.progress.courses, instructorID, quiz.CourseID); err != nil {
		return nil, err
	}

	question := &model.Question{
		QuizID:      quizID,
		Type:        input.Type,
		Text:        input.Text,
		Explanation: input.Explanation,
		Points:      input.Points,
		Order:       input.Order,
	}
	if input.Type.AutoGraded() {
		for i, c := range input.Choices {
			order := c.Order
			if order == 0 {
				order = i + 1
			}
			question.Choices = append(question.Choices, model.AnswerChoice{Text: c.Text, IsCorrect: c.IsCorrect, Order: order})
		}
	}
	if err := repos.quizzes.CreateQuestion(question); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return question, nil
}

// GetQuiz 学生视角的试卷
func (s *QuizService) GetQuiz(ctx context.Context, quizID uint) (*QuizView, error) {
	quiz, err := s.withTx(s.DB.WithContext(ctx)).quizzes.FindWithQuestions(quizID)
	if err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	if !quiz.IsPublished {
		return nil, util.ErrQuizNotFound
	}

	view := &QuizView{
		ID:               quiz.ID,
		Title:            quiz.Title,
		Description:      quiz.Description,
		Type:             quiz.Type,
		CourseID:         quiz.CourseID,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		MaxAttempts:      quiz.MaxAttempts,
		PassPercentage:   quiz.PassPercentage,
		Questions:        make([]QuestionView, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		view.TotalPoints += q.Points
		qv := QuestionView{ID: q.ID, Type: q.Type, Text: q.Text, Points: q.Points, Order: q.Order}
		for _, c := range q.Choices {
			qv.Choices = append(qv.Choices, ChoiceView{ID: c.ID, Text: c.Text, Order: c.Order})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view, nil
}

// StartAttempt 开始答题
// 在锁定选课记录的事务内统计次数并分配 max(attempt_number)+1；
// 并发下 (student, quiz, attempt_number) 唯一索引冲突时重试，每次重试都会重新检查次数上限。
func (s *QuizService) StartAttempt(ctx context.Context, studentID, quizID uint, meta AttemptMeta) (*model.QuizAttempt, error) {
	ctx, span := tracing.Start(ctx, "QuizService.StartAttempt")
	defer span.End()
	span.SetAttributes(attribute.Int64("student.id", int64(studentID)), attribute.Int64("quiz.id", int64(quizID)))

	quiz, err := s.QuizRepo.WithTx(s.DB.WithContext(ctx)).FindByID(quizID)
	if err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	if !quiz.IsAvailable(nowFunc()) {
		return nil, util.ErrQuizNotAvailable
	}

	var attempt *model.QuizAttempt
	for try := 1; ; try++ {
		attempt, err = s.startAttemptTx(ctx, studentID, quiz, meta)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) || try >= maxStartAttemptRetries {
			break
		}
		logger.Log.Warn("Attempt number conflict, retrying",
			zap.Uint("studentId", studentID),
			zap.Uint("quizId", quizID),
			zap.Int("try", try),
		)
	}
	if err != nil {
		if errors.Is(err, util.ErrAttemptLimitReached) {
			monitoring.QuizAttemptCounter.WithLabelValues("limit_reached").Inc()
			return nil, err
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("start attempt: %w", err)
		}
		return nil, err
	}

	monitoring.QuizAttemptCounter.WithLabelValues("started").Inc()
	logger.Log.Info("Quiz attempt started",
		zap.Uint("attemptId", attempt.ID),
		zap.Uint("studentId", studentID),
		zap.Uint("quizId", quizID),
		zap.Int("attemptNumber", attempt.AttemptNumber),
	)
	return attempt, nil
}

func (s *QuizService) startAttemptTx(ctx context.Context, studentID uint, quiz *model.Quiz, meta AttemptMeta) (*model.QuizAttempt, error) {
	var attempt *model.QuizAttempt
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)

		// 锁住选课记录，串行化同一学生的开始答题
		enrollment, err := repos.progress.enrollments.FindByStudentCourseForUpdate(studentID, quiz.CourseID)
		if err != nil {
			return notFound(err, util.ErrEnrollmentNotFound)
		}
		switch enrollment.Status {
		case model.EnrollmentDropped:
			return util.ErrEnrollmentNotFound
		case model.EnrollmentSuspended:
			return util.ErrEnrollmentInactive
		}

		count, err := repos.attempts.CountByStudentQuiz(studentID, quiz.ID)
		if err != nil {
			return err
		}
		if count >= int64(quiz.MaxAttempts) {
			return util.ErrAttemptLimitReached
		}

		last, err := repos.attempts.MaxAttemptNumber(studentID, quiz.ID)
		if err != nil {
			return err
		}

		attempt = &model.QuizAttempt{
			StudentID:     studentID,
			QuizID:        quiz.ID,
			AttemptNumber: last + 1,
			Status:        model.AttemptInProgress,
			StartedAt:     nowFunc(),
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
		}
		return repos.attempts.Create(attempt)
	})
	return attempt, err
}

// ownedAttempt 答题记录必须属于该学生
func ownedAttempt(repo *repository.AttemptRepository, studentID, attemptID uint) (*model.QuizAttempt, error) {
	attempt, err := repo.FindForUpdate(attemptID)
	if err != nil {
		return nil, notFound(err, util.ErrAttemptNotFound)
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, nil
}

// inProgressAttempt 作答或交卷前的检查
func inProgressAttempt(repos quizTx, studentID, attemptID uint) (*model.QuizAttempt, *model.Quiz, error) {
	attempt, err := ownedAttempt(repos.attempts, studentID, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, nil, util.ErrAttemptNotInProgress
	}
	quiz, err := repos.quizzes.FindByID(attempt.QuizID)
	if err != nil {
		return nil, nil, notFound(err, util.ErrQuizNotFound)
	}
	return attempt, quiz, nil
}

// buildAnswer 校验题目与选项归属，生成待保存的作答
func buildAnswer(repos quizTx, attempt *model.QuizAttempt, input AnswerInput) (*model.StudentAnswer, error) {
	question, err := repos.quizzes.FindQuestion(input.QuestionID)
	if err != nil {
		return nil, notFound(err, util.ErrQuestionNotFound)
	}
	if question.QuizID != attempt.QuizID {
		return nil, util.ErrQuestionNotFound
	}
	if input.ChoiceID != nil {
		if _, err := repos.quizzes.FindChoice(question.ID, *input.ChoiceID); err != nil {
			return nil, notFound(err, util.ErrChoiceNotFound)
		}
	}
	return &model.StudentAnswer{
		AttemptID:        attempt.ID,
		QuestionID:       question.ID,
		SelectedChoiceID: input.ChoiceID,
		TextAnswer:       input.Text,
		IsAutoGraded:     question.Type.AutoGraded(),
	}, nil
}

// RecordAnswer 保存单题作答，同一题重复作答覆盖之前的答案
func (s *QuizService) RecordAnswer(ctx context.Context, studentID, attemptID uint, input AnswerInput) (*model.StudentAnswer, error) {
	var answer *model.StudentAnswer
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)
		attempt, quiz, err := inProgressAttempt(repos, studentID, attemptID)
		if err != nil {
			return err
		}
		if attempt.IsTimedOut(quiz, nowFunc()) {
			return util.ErrAttemptTimeExpired
		}

		pending, err := buildAnswer(repos, attempt, input)
		if err != nil {
			return err
		}
		if err := repos.attempts.UpsertAnswer(pending); err != nil {
			return fmt.Errorf("save answer: %w", err)
		}
		answer, err = repos.attempts.FindAnswerByQuestion(attempt.ID, pending.QuestionID)
		return err
	})
	return answer, err
}

// Submit 交卷并评分，非进行中的答题返回 ErrAttemptNotInProgress，分数保持不变
func (s *QuizService) Submit(ctx context.Context, studentID, attemptID uint) (*model.QuizAttempt, error) {
	return s.SubmitAttempt(ctx, studentID, attemptID, nil)
}

// SubmitAttempt 批量保存作答后交卷，无效的题目或选项跳过不记录
func (s *QuizService) SubmitAttempt(ctx context.Context, studentID, attemptID uint, answers []AnswerInput) (*model.QuizAttempt, error) {
	ctx, span := tracing.Start(ctx, "QuizService.Submit")
	defer span.End()
	span.SetAttributes(attribute.Int64("attempt.id", int64(attemptID)))

	var (
		attempt    *model.QuizAttempt
		completion *LessonCompletion
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)
		var (
			quiz *model.Quiz
			err  error
		)
		attempt, quiz, err = inProgressAttempt(repos, studentID, attemptID)
		if err != nil {
			return err
		}

		// 超时后提交的作答不记录，按已保存的作答结算
		if attempt.IsTimedOut(quiz, nowFunc()) {
			if len(answers) > 0 {
				logger.Log.Warn("Discarding answers submitted after time limit",
					zap.Uint("attemptId", attemptID),
					zap.Int("answers", len(answers)),
				)
			}
			return s.finalize(repos, attempt, quiz, model.AttemptTimedOut)
		}

		for _, input := range answers {
			pending, err := buildAnswer(repos, attempt, input)
			if err != nil {
				if errors.Is(err, util.ErrNotFound) {
					logger.Log.Warn("Skipping invalid answer",
						zap.Uint("attemptId", attemptID),
						zap.Uint("questionId", input.QuestionID),
						zap.Error(err),
					)
					continue
				}
				return err
			}
			if err := repos.attempts.UpsertAnswer(pending); err != nil {
				return fmt.Errorf("save answer: %w", err)
			}
		}

		if err := s.finalize(repos, attempt, quiz, model.AttemptCompleted); err != nil {
			return err
		}

		if *attempt.Passed && quiz.LessonID != nil {
			completion, err = s.completeQuizLesson(repos, attempt.StudentID, quiz)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Enrollments.afterCompletion(completion)
	s.observeFinished(attempt)
	return attempt, nil
}

// completeQuizLesson 通过课时测验后完成对应课时
func (s *QuizService) completeQuizLesson(repos quizTx, studentID uint, quiz *model.Quiz) (*LessonCompletion, error) {
	enrollment, err := repos.progress.enrollments.FindByStudentCourseForUpdate(studentID, quiz.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !enrollment.AllowsProgress() {
		return nil, nil
	}
	moduleID, err := lessonInCourse(repos.progress.courses, quiz.CourseID, *quiz.LessonID)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.Enrollments.completeLesson(repos.progress, enrollment, *quiz.LessonID, moduleID)
}

// finalize 对已记录的作答评分并进入终态
func (s *QuizService) finalize(repos quizTx, attempt *model.QuizAttempt, quiz *model.Quiz, status model.AttemptStatus) error {
	result, err := s.grade(repos, attempt, quiz)
	if err != nil {
		return err
	}

	now := nowFunc()
	minutes := int(now.Sub(attempt.StartedAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	attempt.Status = status
	attempt.SubmittedAt = &now
	attempt.TimeTakenMinutes = &minutes
	applyGrade(attempt, result)

	if err := repos.attempts.Update(attempt); err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}

	action := model.ActionQuizAttempted
	if result.Passed {
		action = model.ActionQuizPassed
	}
	return recordActivity(repos.progress.activities, attempt.StudentID, action, uintPtr(quiz.CourseID), quiz.Title,
		map[string]interface{}{
			"quizId":     quiz.ID,
			"attemptId":  attempt.ID,
			"percentage": result.Percentage,
			"status":     string(status),
		})
}

// grade 评分并回写每道题的得分
func (s *QuizService) grade(repos quizTx, attempt *model.QuizAttempt, quiz *model.Quiz) (GradeResult, error) {
	questions, err := repos.quizzes.QuestionsWithChoices(quiz.ID)
	if err != nil {
		return GradeResult{}, err
	}
	answers, err := repos.attempts.AnswersByAttempt(attempt.ID)
	if err != nil {
		return GradeResult{}, err
	}

	result := GradeAttempt(questions, answers, quiz.PassPercentage)
	for i := range result.Answers {
		graded := &result.Answers[i]
		if graded.PointsEarned == answers[i].PointsEarned && graded.IsAutoGraded == answers[i].IsAutoGraded {
			continue
		}
		if err := repos.attempts.SaveAnswer(graded); err != nil {
			return GradeResult{}, fmt.Errorf("save graded answer: %w", err)
		}
	}
	return result, nil
}

func applyGrade(attempt *model.QuizAttempt, result GradeResult) {
	score := result.Score
	maxScore := result.MaxScore
	percentage := result.Percentage
	passed := result.Passed
	attempt.Score = &score
	attempt.MaxScore = &maxScore
	attempt.Percentage = &percentage
	attempt.Passed = &passed
}

func (s *QuizService) observeFinished(attempt *model.QuizAttempt) {
	outcome := string(attempt.Status)
	if attempt.Passed != nil && *attempt.Passed {
		outcome += "_passed"
	}
	monitoring.QuizAttemptCounter.WithLabelValues(outcome).Inc()
	logger.Log.Info("Quiz attempt finished",
		zap.Uint("attemptId", attempt.ID),
		zap.String("status", string(attempt.Status)),
		zap.Float64p("percentage", attempt.Percentage),
		zap.Boolp("passed", attempt.Passed),
	)
}

// Abandon 放弃答题，计入已用次数
func (s *QuizService) Abandon(ctx context.Context, studentID, attemptID uint) (*model.QuizAttempt, error) {
	var attempt *model.QuizAttempt
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)
		var err error
		attempt, err = ownedAttempt(repos.attempts, studentID, attemptID)
		if err != nil {
			return err
		}
		if attempt.Status != model.AttemptInProgress {
			return util.ErrAttemptNotInProgress
		}
		attempt.Status = model.AttemptAbandoned
		return repos.attempts.Update(attempt)
	})
	if err != nil {
		return nil, err
	}
	monitoring.QuizAttemptCounter.WithLabelValues(string(model.AttemptAbandoned)).Inc()
	return attempt, nil
}

// ExpireTimedOutAttempts 将超时的进行中答题按已作答内容评分并置为 timed_out
func (s *QuizService) ExpireTimedOutAttempts(ctx context.Context) (int, error) {
	ctx, span := tracing.Start(ctx, "QuizService.ExpireTimedOutAttempts")
	defer span.End()

	now := nowFunc()
	candidates, err := s.AttemptRepo.WithTx(s.DB.WithContext(ctx)).ListInProgressWithTimeLimit(now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range candidates {
		if !candidates[i].IsTimedOut(candidates[i].Quiz, now) {
			continue
		}
		var attempt *model.QuizAttempt
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repos := s.withTx(tx)
			var err error
			attempt, err = repos.attempts.FindForUpdate(candidates[i].ID)
			if err != nil {
				return err
			}
			quiz, err := repos.quizzes.FindByID(attempt.QuizID)
			if err != nil {
				return err
			}
			// 等锁期间可能已交卷
			if !attempt.IsTimedOut(quiz, nowFunc()) {
				attempt = nil
				return nil
			}
			return s.finalize(repos, attempt, quiz, model.AttemptTimedOut)
		})
		if err != nil {
			logger.Log.Error("Failed to expire attempt", zap.Uint("attemptId", candidates[i].ID), zap.Error(err))
			continue
		}
		if attempt != nil {
			expired++
			s.observeFinished(attempt)
		}
	}
	span.SetAttributes(attribute.Int("attempts.expired", expired))
	return expired, nil
}

// GradeAnswer 讲师为主观题评分并重新计算答题成绩
func (s *QuizService) GradeAnswer(ctx context.Context, instructorID, answerID uint, points float64, feedback string) (*model.QuizAttempt, error) {
	var (
		attempt    *model.QuizAttempt
		completion *LessonCompletion
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)
		answer, err := repos.attempts.FindAnswer(answerID)
		if err != nil {
			return notFound(err, util.ErrAnswerNotFound)
		}
		attempt, err = repos.attempts.FindForUpdate(answer.AttemptID)
		if err != nil {
			return notFound(err, util.ErrAttemptNotFound)
		}
		quiz, err := repos.quizzes.FindByID(attempt.QuizID)
		if err != nil {
			return notFound(err, util.ErrQuizNotFound)
		}
		if _, err := ownedCourse(repos.progress.courses, instructorID, quiz.CourseID); err != nil {
			return err
		}
		if attempt.Status != model.AttemptCompleted && attempt.Status != model.AttemptTimedOut {
			return util.ErrAttemptNotFinished
		}
		question, err := repos.quizzes.FindQuestion(answer.QuestionID)
		if err != nil {
			return notFound(err, util.ErrQuestionNotFound)
		}
		if question.Type.AutoGraded() {
			return util.ErrNotManuallyGradable
		}
		if points < 0 || points > float64(question.Points) {
			return util.ErrInvalidPoints
		}

		now := nowFunc()
		answer.PointsEarned = points
		answer.InstructorFeedback = feedback
		answer.GradedByID = &instructorID
		answer.GradedAt = &now
		if err := repos.attempts.SaveAnswer(answer); err != nil {
			return err
		}

		wasPassed := attempt.Passed != nil && *attempt.Passed
		result, err := s.grade(repos, attempt, quiz)
		if err != nil {
			return err
		}
		applyGrade(attempt, result)
		if err := repos.attempts.Update(attempt); err != nil {
			return err
		}

		if err := recordActivity(repos.progress.activities, instructorID, model.ActionStudentGraded, uintPtr(quiz.CourseID), "",
			map[string]interface{}{"attemptId": attempt.ID, "answerId": answer.ID, "points": points}); err != nil {
			return err
		}

		if !wasPassed && result.Passed && attempt.Status == model.AttemptCompleted && quiz.LessonID != nil {
			completion, err = s.completeQuizLesson(repos, attempt.StudentID, quiz)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Enrollments.afterCompletion(completion)
	return attempt, nil
}

// GetAttempt 答题详情，包含超时判断与剩余时间
func (s *QuizService) GetAttempt(ctx context.Context, studentID, attemptID uint) (*AttemptView, error) {
	attempt, err := s.AttemptRepo.WithTx(s.DB.WithContext(ctx)).FindWithAnswers(attemptID)
	if err != nil {
		return nil, notFound(err, util.ErrAttemptNotFound)
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrAttemptNotFound
	}
	now := nowFunc()
	return &AttemptView{
		QuizAttempt:          attempt,
		IsTimedOut:           attempt.IsTimedOut(attempt.Quiz, now),
		RemainingTimeSeconds: attempt.RemainingTimeSeconds(attempt.Quiz, now),
	}, nil
}

// IsTimedOut 仅查询，不改变答题状态
func (s *QuizService) IsTimedOut(ctx context.Context, studentID, attemptID uint) (bool, error) {
	view, err := s.GetAttempt(ctx, studentID, attemptID)
	if err != nil {
		return false, err
	}
	return view.IsTimedOut, nil
}

// RemainingAttempts max(0, 最大次数 - 已用次数)
func (s *QuizService) RemainingAttempts(ctx context.Context, studentID, quizID uint) (int, error) {
	repos := s.withTx(s.DB.WithContext(ctx))
	quiz, err := repos.quizzes.FindByID(quizID)
	if err != nil {
		return 0, notFound(err, util.ErrQuizNotFound)
	}
	count, err := repos.attempts.CountByStudentQuiz(studentID, quizID)
	if err != nil {
		return 0, err
	}
	remaining := quiz.MaxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *QuizService) ListAttempts(ctx context.Context, studentID, quizID uint) ([]model.QuizAttempt, error) {
	return s.AttemptRepo.WithTx(s.DB.WithContext(ctx)).ListByStudentQuiz(studentID, quizID)
}

// BestScore 已结束答题中的最高百分比，没有时返回 nil
func (s *QuizService) BestScore(ctx context.Context, studentID, quizID uint) (*float64, error) {
	return s.AttemptRepo.WithTx(s.DB.WithContext(ctx)).BestPercentage(studentID, quizID)
}
