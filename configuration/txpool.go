package configuration

type TxPoolConfiguration struct {
	MaxCount           int
	MaxCountPerAccount int
}

func DefTxPoolConfiguration() *TxPoolConfiguration {
	return &TxPoolConfiguration{
		MaxCount:           40 * 1024,
		MaxCountPerAccount: 64,
	}
}

func (config *TxPoolConfiguration) Check() *TxPoolConfiguration {
	conf := *config
	if conf.MaxCount <= 0 {
		conf.MaxCount = DefTxPoolConfiguration().MaxCount
	}
	if conf.MaxCountPerAccount <= 0 {
		conf.MaxCountPerAccount = DefTxPoolConfiguration().MaxCountPerAccount
	}

	return &conf
}
