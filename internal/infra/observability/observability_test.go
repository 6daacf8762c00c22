package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation_Outcomes(t *testing.T) {
	start := time.Now()
	ObserveOperation("invest", start, nil)
	ObserveOperation("invest", start, errors.New("boom"))
	ObserveOperation("invest", start, nil)

	ok := testutil.CollectAndCount(OperationDuration)
	if ok == 0 {
		t.Fatal("OperationDuration collected no series")
	}
}

func TestCounters_Accumulate(t *testing.T) {
	before := testutil.ToFloat64(InvestmentsRecorded)
	InvestmentsRecorded.Inc()
	InvestmentsRecorded.Inc()
	after := testutil.ToFloat64(InvestmentsRecorded)

	if after-before != 2 {
		t.Errorf("InvestmentsRecorded delta = %v, want 2", after-before)
	}
}

func TestGauges_SetAndRead(t *testing.T) {
	EscrowHeld.Set(12_500)
	if got := testutil.ToFloat64(EscrowHeld); got != 12_500 {
		t.Errorf("EscrowHeld = %v, want 12500", got)
	}

	CampaignsByState.WithLabelValues("LIVE").Set(3)
	if got := testutil.ToFloat64(CampaignsByState.WithLabelValues("LIVE")); got != 3 {
		t.Errorf("CampaignsByState{LIVE} = %v, want 3", got)
	}
}

func TestTransitionEdges_Labelled(t *testing.T) {
	edge := CampaignTransitions.WithLabelValues("LIVE", "SUCCESSFUL")
	before := testutil.ToFloat64(edge)
	edge.Inc()
	if got := testutil.ToFloat64(edge); got-before != 1 {
		t.Errorf("transition edge delta = %v, want 1", got-before)
	}
}
