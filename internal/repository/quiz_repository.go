package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Omit("Questions").Create(quiz).Error
}

func (r *QuizRepository) Update(quiz *model.Quiz) error {
	return r.DB.Omit("Questions").Save(quiz).Error
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.First(&quiz, id).Error
	return &quiz, err
}

// FindWithQuestions 试卷及按顺序排列的题目和选项
func (r *QuizRepository) FindWithQuestions(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("Questions.Choices", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		First(&quiz, id).Error
	return &quiz, err
}

func (r *QuizRepository) ListByCourse(courseID uint, publishedOnly bool) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	query := r.DB.Where("course_id = ?", courseID)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	err := query.Order("sort_order ASC, id ASC").Find(&quizzes).Error
	return quizzes, err
}

// CreateQuestion 题目与选项一起写入
func (r *QuizRepository) CreateQuestion(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *QuizRepository) FindQuestion(id uint) (*model.Question, error) {
	var question model.Question
	err := r.DB.First(&question, id).Error
	return &question, err
}

func (r *QuizRepository) QuestionsWithChoices(quizID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Preload("Choices").
		Where("quiz_id = ?", quizID).
		Order("sort_order ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

// FindChoice 选项必须属于该题目
func (r *QuizRepository) FindChoice(questionID, choiceID uint) (*model.AnswerChoice, error) {
	var choice model.AnswerChoice
	err := r.DB.Where("id = ? AND question_id = ?", choiceID, questionID).First(&choice).Error
	return &choice, err
}
