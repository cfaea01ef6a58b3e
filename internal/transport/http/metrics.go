package httptransport

import "expvar"

var (
	metricWalletQueryTotal  = expvar.NewInt("wallet_query_total")
	metricLedgerQueryTotal  = expvar.NewInt("ledger_query_total")
	metricRewardClaimTotal  = expvar.NewInt("reward_claim_total")
	metricRewardClaimErrors = expvar.NewInt("reward_claim_errors_total")

	metricReplayQueryTotal  = expvar.NewInt("match_replay_query_total")
	metricReplayQueryErrors = expvar.NewInt("match_replay_query_errors_total")
)
