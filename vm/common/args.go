package common

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const (
	ContractMethodArgs_Separation = "@"
)

// SplitArgs splits raw call params into their textual arguments. Empty params mean no arguments.
func SplitArgs(params []byte) []string {
	if len(params) == 0 {
		return nil
	}
	return strings.Split(string(params), ContractMethodArgs_Separation)
}

// EncodeArgs renders call arguments: scalars as text, everything else as hex encoded JSON.
func EncodeArgs(args ...interface{}) ([]byte, error) {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		v := reflect.ValueOf(arg)
		switch v.Kind() {
		case reflect.String:
			if strings.Contains(v.String(), ContractMethodArgs_Separation) {
				return nil, fmt.Errorf("string arg %q contains separator %s", v.String(), ContractMethodArgs_Separation)
			}
			parts = append(parts, v.String())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			parts = append(parts, strconv.FormatInt(v.Int(), 10))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			parts = append(parts, strconv.FormatUint(v.Uint(), 10))
		case reflect.Bool:
			parts = append(parts, strconv.FormatBool(v.Bool()))
		default:
			argBytes, err := json.Marshal(arg)
			if err != nil {
				return nil, err
			}
			parts = append(parts, hex.EncodeToString(argBytes))
		}
	}

	return []byte(strings.Join(parts, ContractMethodArgs_Separation)), nil
}

// ParseArgs converts textual arguments into values of paramTypes.
func ParseArgs(args []string, paramTypes []reflect.Type) ([]reflect.Value, error) {
	if len(args) != len(paramTypes) {
		return nil, fmt.Errorf("Invalid args: len %d, expected %d", len(args), len(paramTypes))
	}

	var argValues []reflect.Value
	for i, paramType := range paramTypes {
		paramTypeKind := paramType.Kind()
		switch paramTypeKind {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			pVal, err := strconv.ParseInt(args[i], 10, paramType.Bits())
			if err != nil {
				return nil, err
			}
			argValue := reflect.New(paramType).Elem()
			argValue.SetInt(pVal)
			argValues = append(argValues, argValue)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			pVal, err := strconv.ParseUint(args[i], 10, paramType.Bits())
			if err != nil {
				return nil, err
			}
			argValue := reflect.New(paramType).Elem()
			argValue.SetUint(pVal)
			argValues = append(argValues, argValue)
		case reflect.String:
			argValue := reflect.New(paramType).Elem()
			argValue.SetString(args[i])
			argValues = append(argValues, argValue)
		case reflect.Bool:
			pVal, err := strconv.ParseBool(args[i])
			if err != nil {
				return nil, err
			}
			argValue := reflect.New(paramType).Elem()
			argValue.SetBool(pVal)
			argValues = append(argValues, argValue)
		default:
			target := paramType
			if paramTypeKind == reflect.Ptr {
				target = paramType.Elem()
			}
			argValue := reflect.New(target)

			paramBytes, err := hex.DecodeString(args[i])
			if err != nil {
				return nil, err
			}
			if err = json.Unmarshal(paramBytes, argValue.Interface()); err != nil {
				return nil, err
			}

			if paramTypeKind == reflect.Ptr {
				argValues = append(argValues, argValue)
			} else {
				argValues = append(argValues, argValue.Elem())
			}
		}
	}

	return argValues, nil
}
