package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/billscan/internal/model"
)

func dukeConfig() Config {
	return Config{
		NoticeIndicators: []string{
			"disconnection notice",
			"service will be disconnected",
			"past due",
			"final notice",
			"disconnect date",
		},
		BillIndicators: []string{
			"your energy bill",
			"duke energy",
			"billing summary",
			"energy used",
			"current electric charges",
			"total amount due",
		},
		BillThreshold: 2,
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	c := New(dukeConfig())

	tests := []struct {
		name string
		text string
		want model.DocumentType
	}{
		{"bill", "Your Energy Bill\nDuke Energy\nTotal Amount Due $140.14", model.DocumentBill},
		{"single bill indicator", "Duke Energy customer letter", model.DocumentUnknown},
		{"notice", "FINAL NOTICE\nYour account is PAST DUE", model.DocumentAttentionNotice},
		{"single notice indicator on a bill", "Your energy bill\nDuke Energy\npast due balance", model.DocumentBill},
		{"empty", "", model.DocumentUnknown},
		{"garbage", "%%%% ####", model.DocumentUnknown},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func TestClassify_NoticeBeatsBillBoilerplate(t *testing.T) {
	t.Parallel()

	c := New(dukeConfig())
	text := strings.Join([]string{
		"Your Energy Bill", "Duke Energy", "Billing Summary", "Energy Used 812 kWh",
		"Total Amount Due $301.22", "FINAL NOTICE", "Service will be disconnected on Feb 3",
	}, "\n")

	s := c.Score(text)
	assert.GreaterOrEqual(t, s.Bill, 3)
	assert.GreaterOrEqual(t, s.Notice, 2)
	assert.Equal(t, model.DocumentAttentionNotice, c.Classify(text))
}

func TestClassify_Threshold(t *testing.T) {
	t.Parallel()

	cfg := Config{
		BillIndicators: []string{"spectrum", "internet", "amount due"},
		BillThreshold:  3,
	}
	c := New(cfg)

	assert.Equal(t, model.DocumentUnknown, c.Classify("Spectrum Internet"))
	assert.Equal(t, model.DocumentBill, c.Classify("Spectrum Internet\nAmount Due $80.00"))
}

func TestClassify_BillMarkers(t *testing.T) {
	t.Parallel()

	c := New(Config{
		NoticeIndicators: []string{"disconnection notice", "amount past due"},
		BillIndicators:   []string{"energy used", "facility charge"},
		BillMarkers:      []string{"bill type", "normal"},
	})

	assert.Equal(t, model.DocumentBill, c.Classify("BILL TYPE: NORMAL"))
	assert.Equal(t, model.DocumentAttentionNotice,
		c.Classify("BILL TYPE: NORMAL\nDISCONNECTION NOTICE\nAmount past due $40"))
}

func TestClassify_InformationalContext(t *testing.T) {
	t.Parallel()

	c := New(Config{
		NoticeIndicators:     []string{"disconnection notice", "final notice before disconnect"},
		BillIndicators:       []string{"energy used", "facility charge"},
		InformationalContext: []string{"if your bill shows"},
	})

	info := "Energy Used 900\nFacility Charge 30.00\n" +
		"If your bill shows a disconnection notice or a final notice before disconnect, call us."
	s := c.Score(info)
	assert.Equal(t, 0, s.Notice)
	assert.Equal(t, model.DocumentBill, c.Classify(info))

	real := "DISCONNECTION NOTICE\nThis is your final notice before disconnect.\n" +
		strings.Repeat(" ", 200) + "If your bill shows a disconnection notice, call us."
	assert.Equal(t, model.DocumentAttentionNotice, c.Classify(real))
}

func TestNew_DefaultsAndCleanup(t *testing.T) {
	t.Parallel()

	c := New(Config{BillIndicators: []string{"  Amount Due ", "", "KWH"}})
	assert.Equal(t, []string{"amount due", "kwh"}, c.bill)
	assert.Equal(t, 2, c.billThreshold)
	assert.Equal(t, 2, c.noticeThreshold)
}

func TestNew_NoticeThresholdCapped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		threshold int
		want      int
	}{
		{"unset", 0, 2},
		{"lowered", 1, 1},
		{"at cap", 2, 2},
		{"above cap", 5, 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := dukeConfig()
			cfg.NoticeThreshold = tt.threshold
			c := New(cfg)
			assert.Equal(t, tt.want, c.noticeThreshold)
		})
	}

	cfg := dukeConfig()
	cfg.NoticeThreshold = 5
	text := "Your Energy Bill\nTotal Amount Due $140.14\nFINAL NOTICE\nPast due balance"
	assert.Equal(t, model.DocumentAttentionNotice, New(cfg).Classify(text))
}
