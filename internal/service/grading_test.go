package service

import (
	"lms_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func question(id uint, typ model.QuestionType, points int, choices ...model.AnswerChoice) model.Question {
	q := model.Question{QuizID: 1, Type: typ, Points: points, Choices: choices}
	q.ID = id
	return q
}

func choice(id uint, correct bool) model.AnswerChoice {
	c := model.AnswerChoice{IsCorrect: correct}
	c.ID = id
	return c
}

func selected(questionID, choiceID uint) model.StudentAnswer {
	return model.StudentAnswer{QuestionID: questionID, SelectedChoiceID: &choiceID}
}

func TestGradeAttempt(t *testing.T) {
	twoMC := []model.Question{
		question(1, model.MultipleChoice, 1, choice(11, true), choice(12, false)),
		question(2, model.MultipleChoice, 1, choice(21, true), choice(22, false)),
	}

	tests := []struct {
		name           string
		questions      []model.Question
		answers        []model.StudentAnswer
		pass           float64
		wantScore      float64
		wantMax        int
		wantPercentage float64
		wantPassed     bool
	}{
		{
			name:      "one right one wrong",
			questions: twoMC,
			answers:   []model.StudentAnswer{selected(1, 11), selected(2, 22)},
			pass:      70, wantScore: 1, wantMax: 2, wantPercentage: 50, wantPassed: false,
		},
		{
			name:      "all correct",
			questions: twoMC,
			answers:   []model.StudentAnswer{selected(1, 11), selected(2, 21)},
			pass:      70, wantScore: 2, wantMax: 2, wantPercentage: 100, wantPassed: true,
		},
		{
			name:      "unanswered question still counts toward max",
			questions: []model.Question{question(1, model.MultipleChoice, 1, choice(11, true))},
			answers:   nil,
			pass:      70, wantScore: 0, wantMax: 1, wantPercentage: 0, wantPassed: false,
		},
		{
			name:      "empty answer is incorrect",
			questions: twoMC,
			answers:   []model.StudentAnswer{{QuestionID: 1}, selected(2, 21)},
			pass:      50, wantScore: 1, wantMax: 2, wantPercentage: 50, wantPassed: true,
		},
		{
			name:      "choice from another question scores nothing",
			questions: twoMC,
			answers:   []model.StudentAnswer{selected(1, 21)},
			pass:      70, wantScore: 0, wantMax: 2, wantPercentage: 0, wantPassed: false,
		},
		{
			name: "essay keeps manual points within range",
			questions: []model.Question{
				question(1, model.TrueFalse, 2, choice(11, true), choice(12, false)),
				question(2, model.Essay, 3),
			},
			answers: []model.StudentAnswer{selected(1, 11), {QuestionID: 2, PointsEarned: 7}},
			pass:    70, wantScore: 5, wantMax: 5, wantPercentage: 100, wantPassed: true,
		},
		{
			name:      "ungraded short answer earns zero",
			questions: []model.Question{question(1, model.ShortAnswer, 4)},
			answers:   []model.StudentAnswer{{QuestionID: 1, TextAnswer: "goroutines"}},
			pass:      0, wantScore: 0, wantMax: 4, wantPercentage: 0, wantPassed: true,
		},
		{
			name:      "quiz without questions",
			questions: nil,
			answers:   nil,
			pass:      70, wantScore: 0, wantMax: 0, wantPercentage: 0, wantPassed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GradeAttempt(tt.questions, tt.answers, tt.pass)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantMax, got.MaxScore)
			assert.InDelta(t, tt.wantPercentage, got.Percentage, 0.0001)
			assert.Equal(t, tt.wantPassed, got.Passed)
			assert.Len(t, got.Answers, len(tt.answers))
		})
	}
}

func TestGradeAttemptMarksAutoGrading(t *testing.T) {
	questions := []model.Question{
		question(1, model.MultipleChoice, 2, choice(11, true)),
		question(2, model.Essay, 2),
	}
	got := GradeAttempt(questions, []model.StudentAnswer{selected(1, 11), {QuestionID: 2}}, 50)

	assert.True(t, got.Answers[0].IsAutoGraded)
	assert.Equal(t, 2.0, got.Answers[0].PointsEarned)
	assert.False(t, got.Answers[1].IsAutoGraded)
	assert.Equal(t, 0.0, got.Answers[1].PointsEarned)
}
