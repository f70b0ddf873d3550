package service

// Ответы OKX: числа приходят строками.

type positionRow struct {
	InstID         string `json:"instId"`
	InstType       string `json:"instType"`
	MgnMode        string `json:"mgnMode"`
	PosSide        string `json:"posSide"`
	Pos            string `json:"pos"`
	AvgPx          string `json:"avgPx"`
	Upl            string `json:"upl"`
	Lever          string `json:"lever"`
	CloseOrderAlgo []struct {
		AlgoID      string `json:"algoId"`
		SlTriggerPx string `json:"slTriggerPx"`
		TpTriggerPx string `json:"tpTriggerPx"`
	} `json:"closeOrderAlgo"`
}

type instrumentRow struct {
	InstID   string `json:"instId"`
	TickSz   string `json:"tickSz"`
	LotSz    string `json:"lotSz"`
	MinSz    string `json:"minSz"`
	CtVal    string `json:"ctVal"`
	CtMult   string `json:"ctMult"`
	State    string `json:"state"`
	MaxMktSz string `json:"maxMktSz"`
	CtType   string `json:"ctType"`
}

type balanceRow struct {
	Details []struct {
		Ccy      string `json:"ccy"`
		AvailBal string `json:"availBal"`
		Eq       string `json:"eq"`
	} `json:"details"`
}

type tickerRow struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
}

type orderRow struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	AlgoID  string `json:"algoId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}
