// Package serialization reads and writes model state dictionaries in the
// SafeTensors format.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON object, tensor name -> {dtype, shape, data_offsets}]
//	  [Tensor data: raw little-endian bytes, tensors in name order]
//
// The format supports:
//   - F32, F64 and F16 payloads (F16 via github.com/x448/float16)
//   - Arbitrary tensor shapes
//   - String metadata under the "__metadata__" key
//   - A SHA-256 checksum of the data section stored in metadata
//
// Example usage:
//
//	// Save a cell
//	err := serialization.WriteSafeTensors("cell.safetensors", cell.StateDict(), meta)
//
//	// Load it back
//	reader, err := serialization.NewSafeTensorsReader("cell.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stateDict, err := reader.ReadStateDict(tensor.Float32)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = cell.LoadStateDict(stateDict)
package serialization
