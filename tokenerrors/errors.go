package tokenerrors

import (
	"errors"
	"strings"
)

// Transfer (T) Errors
var (
	ErrTInsufficientBalance = errors.New("T1|InsufficientBalance: Sender balance is lower than the transfer amount.")
	ErrTInvalidRecipient    = errors.New("T2|InvalidRecipient: Recipient is the zero address.")
	ErrTInvalidSender       = errors.New("T3|InvalidSender: Sender is the zero address.")
	ErrTZeroAmount          = errors.New("T4|ZeroAmount: Transfer amount must be greater than zero.")
	ErrTExceedsMaxTransfer  = errors.New("T5|ExceedsMaxTransfer: Transfer amount exceeds the configured maximum.")
	ErrTArithmeticOverflow  = errors.New("T6|ArithmeticOverflow: Reflected-unit arithmetic overflowed 256 bits.")
)

// Reward (R) Errors
var (
	ErrRAlreadyExcluded         = errors.New("R1|AlreadyExcluded: Account is already excluded from reward.")
	ErrRNotExcluded             = errors.New("R2|NotExcluded: Account is not excluded from reward.")
	ErrRExcludedCaller          = errors.New("R3|ExcludedCaller: Reward-excluded accounts cannot deliver into reflection.")
	ErrRAmountExceedsSupply     = errors.New("R4|AmountExceedsSupply: Amount must be less than or equal to the total supply.")
	ErrRAmountExceedsReflection = errors.New("R5|AmountExceedsReflection: Amount must be less than or equal to the total reflection.")
)

// Admin (A) Errors
var (
	ErrANotOwner = errors.New("A1|NotOwner: Caller is not the owner.")
)

// Configuration (C) Errors
var (
	ErrCInvalidFee     = errors.New("C1|InvalidFee: Tax and liquidity fees must sum to at most 10000 basis points.")
	ErrCInvalidGenesis = errors.New("C2|InvalidGenesis: Genesis specification is incomplete or inconsistent.")
)

// GetErrorName extracts the error name from the error message.
// Wrapped errors ("transfer: T1|...") are handled by looking at the innermost coded part.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := coded(err.Error())
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	if len(parts) < 2 {
		return errStr
	}
	nameDesc := parts[1]
	// Split on ':' to separate the error name from its description.
	nameParts := strings.SplitN(nameDesc, ":", 2)
	return strings.TrimSpace(nameParts[0])
}

func GetErrorNames(errs []error) []string {
	errStrs := make([]string, len(errs))
	for i, err := range errs {
		errStrs[i] = GetErrorName(err)
	}
	return errStrs
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := coded(err.Error())
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := GetErrorName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	errStr := coded(err.Error())
	parts := strings.SplitN(errStr, ":", 2)
	if len(parts) < 2 {
		return "DESC NOT SET"
	}
	return strings.TrimSpace(parts[1])
}

// coded strips any "context: " prefixes added by fmt.Errorf wrapping.
func coded(errStr string) string {
	bar := strings.Index(errStr, "|")
	if bar < 0 {
		return errStr
	}
	if sep := strings.LastIndex(errStr[:bar], ": "); sep >= 0 {
		return errStr[sep+2:]
	}
	return errStr
}
