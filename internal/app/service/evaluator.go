package service

import (
	"quizarena/internal/domain/model"
)

// Evaluate scores a submitted selection against a question. It is pure and
// total: a selection whose shape does not match the question type is simply
// incorrect, never an error.
//
// single/boolean: correct iff the selection is a single index equal to the
// correct one. multiple: correct iff the selection, taken as a set, equals
// the correct index set — order and duplicates are irrelevant, so a duplicate
// cannot pad a short answer up to the right cardinality.
func Evaluate(q *model.Question, sel model.Selection) (isCorrect bool, points int) {
	switch q.QuestionType {
	case model.QuestionSingle, model.QuestionBoolean:
		isCorrect = !sel.IsMulti && !q.Correct.IsMulti && sel.Single == q.Correct.Single
	case model.QuestionMultiple:
		isCorrect = sel.IsMulti && q.Correct.IsMulti && setEqual(sel.Multi, q.Correct.Multi)
	}
	if isCorrect {
		return true, q.Score
	}
	return false, 0
}

func setEqual(a, b []int) bool {
	as := make(map[int]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[int]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}
