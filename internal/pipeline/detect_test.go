package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectWorkOrder(t *testing.T) {
	body := "Work Order: 123\nPurchase Order: 456\nScheduled Date: 1/2/2025"
	res := DetectWorkOrder("New work order", body, nil, 0.45)
	assert.True(t, res.IsWorkOrder)
	assert.Equal(t, "rules_positive", res.Reason)
	assert.LessOrEqual(t, res.Score, 1.0)
}

func TestDetectWorkOrderPDFAttachment(t *testing.T) {
	res := DetectWorkOrder("WO# 8841", "see attached\nWork Order: 8841", []string{"scan.PDF"}, 0.45)
	assert.True(t, res.IsWorkOrder)
}

func TestDetectRejectsChatter(t *testing.T) {
	res := DetectWorkOrder("Lunch on Friday?", "Anyone up for tacos?", []string{"menu.png"}, 0.45)
	assert.False(t, res.IsWorkOrder)
	assert.Equal(t, "rules_negative", res.Reason)
	assert.Zero(t, res.Score)
}

func TestDetectThreshold(t *testing.T) {
	res := DetectWorkOrder("", "Remarks", nil, 0.45)
	assert.False(t, res.IsWorkOrder)

	res = DetectWorkOrder("", "Remarks", nil, 0.1)
	assert.True(t, res.IsWorkOrder)
}
