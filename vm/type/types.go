package _type

type ReturnCode int

const (
	ReturnCode_Ok ReturnCode = iota
	ReturnCode_NotEnable
	ReturnCode_ContractNotFound
	ReturnCode_MethodNotFound
	ReturnCode_InvalidParam
	ReturnCode_ExecuteErr
)

var returnCodeNames = map[ReturnCode]string{
	ReturnCode_Ok:               "Ok",
	ReturnCode_NotEnable:        "VM disabled",
	ReturnCode_ContractNotFound: "contract not found",
	ReturnCode_MethodNotFound:   "method not found",
	ReturnCode_InvalidParam:     "invalid params",
	ReturnCode_ExecuteErr:       "contract reverted",
}

func (rc ReturnCode) String() string {
	if name, ok := returnCodeNames[rc]; ok {
		return name
	}
	return "unknown"
}

// VMResult is the contract-level outcome of one call. A non-Ok code fails the transaction, not the worker.
type VMResult struct {
	Code   ReturnCode
	ErrMsg string
}

func (r *VMResult) OK() bool {
	return r.Code == ReturnCode_Ok
}

// Reason renders the failure as recorded in the transaction result.
func (r *VMResult) Reason() string {
	if r.ErrMsg == "" {
		return r.Code.String()
	}
	return r.Code.String() + ": " + r.ErrMsg
}
