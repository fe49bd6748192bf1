package service

import "lms_backend/internal/model"

// GradeResult 一次答题的评分结果
type GradeResult struct {
	Score      float64
	MaxScore   int
	Percentage float64
	Passed     bool
	// 评分后的作答，与输入顺序一致
	Answers []model.StudentAnswer
}

// GradeAttempt 按题目为作答计分
// 选择题与判断题仅当所选选项存在且正确时得分；简答与论述题保留人工给分，未评分时为 0。
// 满分为试卷全部题目分值之和，未作答的题目同样计入。
func GradeAttempt(questions []model.Question, answers []model.StudentAnswer, passPercentage float64) GradeResult {
	byID := make(map[uint]*model.Question, len(questions))
	var result GradeResult
	for i := range questions {
		q := &questions[i]
		byID[q.ID] = q
		result.MaxScore += q.Points
	}

	result.Answers = make([]model.StudentAnswer, 0, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			// 不属于该试卷的作答不计分
			a.PointsEarned = 0
			result.Answers = append(result.Answers, a)
			continue
		}

		if q.Type.AutoGraded() {
			a.IsAutoGraded = true
			a.PointsEarned = 0
			if a.SelectedChoiceID != nil && choiceIsCorrect(q, *a.SelectedChoiceID) {
				a.PointsEarned = float64(q.Points)
			}
		} else {
			a.IsAutoGraded = false
			a.PointsEarned = clampPoints(a.PointsEarned, q.Points)
		}

		result.Score += a.PointsEarned
		result.Answers = append(result.Answers, a)
	}

	if result.MaxScore > 0 {
		result.Percentage = result.Score / float64(result.MaxScore) * 100
	}
	result.Passed = result.Percentage >= passPercentage
	return result
}

func choiceIsCorrect(q *model.Question, choiceID uint) bool {
	for _, c := range q.Choices {
		if c.ID == choiceID {
			return c.IsCorrect
		}
	}
	return false
}

func clampPoints(points float64, max int) float64 {
	if points < 0 {
		return 0
	}
	if points > float64(max) {
		return float64(max)
	}
	return points
}
