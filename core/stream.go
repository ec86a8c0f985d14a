package core

import (
	"fmt"

	"github.com/tsawler/pdfform/internal/filters"
)

// Decode decodes the stream data according to the Filter(s) specified in the
// stream dictionary. Filter chains are applied in order.
func (s *Stream) Decode() ([]byte, error) {
	filterObj := s.Dict.Get("Filter")
	if filterObj == nil {
		return s.Data, nil
	}
	paramsObj := s.Dict.Get("DecodeParms")

	switch f := filterObj.(type) {
	case Name:
		return decodeWithFilter(s.Data, string(f), paramsObjToDict(paramsObj))

	case Array:
		data := s.Data
		for i, filter := range f {
			filterName, ok := filter.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is not a name: %s", i, filter.Type())
			}
			var params Dict
			if paramsArray, ok := paramsObj.(Array); ok {
				params = paramsObjToDict(paramsArray.Get(i))
			} else {
				params = paramsObjToDict(paramsObj)
			}
			var err error
			data, err = decodeWithFilter(data, string(filterName), params)
			if err != nil {
				return nil, fmt.Errorf("filter %d (%s) failed: %w", i, filterName, err)
			}
		}
		return data, nil
	}

	return nil, fmt.Errorf("invalid Filter type: %s", filterObj.Type())
}

// decodeWithFilter applies a single filter. Image codecs pass through
// unchanged because only vector and text content is interpreted.
func decodeWithFilter(data []byte, filterName string, params Dict) ([]byte, error) {
	switch filterName {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, dictToParams(params))
	case "LZWDecode", "LZW":
		return filters.LZWDecode(data, dictToParams(params))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	case "RunLengthDecode", "RL":
		return filters.RunLengthDecode(data)
	case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode", "CCITTFaxDecode", "CCF":
		return data, nil
	case "Crypt":
		return nil, ErrEncrypted
	}
	return nil, fmt.Errorf("unknown filter: %s", filterName)
}

func paramsObjToDict(obj Object) Dict {
	dict, _ := obj.(Dict)
	return dict
}

// dictToParams converts a Dict to filters.Params with Go primitive values.
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case Name:
			params[k] = string(obj)
		}
	}
	return params
}
