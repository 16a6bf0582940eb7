package export

// Embedded Python helpers. Each is written to a private temp file and
// invoked with the discovered interpreter; they depend on the optimum and
// onnxruntime Python packages being installed in that environment.

const exportScript = `import argparse
from pathlib import Path

from optimum.exporters.onnx import main_export
from transformers import AutoTokenizer


def main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--model-id", required=True)
    parser.add_argument("--task", default="question-answering")
    parser.add_argument("--output-dir", required=True)
    parser.add_argument("--opset", type=int, default=0)
    args = parser.parse_args()

    out = Path(args.output_dir)
    out.mkdir(parents=True, exist_ok=True)

    main_export(
        args.model_id,
        output=out,
        task=args.task,
        opset=args.opset or None,
    )

    tokenizer = AutoTokenizer.from_pretrained(args.model_id)
    tokenizer.save_pretrained(out)


if __name__ == "__main__":
    main()
`

const optimizeScript = `import argparse

from onnxruntime.transformers import optimizer


def main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--input", required=True)
    parser.add_argument("--output", required=True)
    parser.add_argument("--num-heads", type=int, required=True)
    parser.add_argument("--hidden-size", type=int, required=True)
    parser.add_argument("--fp16-output", default="")
    args = parser.parse_args()

    model = optimizer.optimize_model(
        args.input,
        model_type="bert",
        num_heads=args.num_heads,
        hidden_size=args.hidden_size,
    )
    model.save_model_to_file(args.output)

    if args.fp16_output:
        model.convert_float_to_float16()
        model.save_model_to_file(args.fp16_output)


if __name__ == "__main__":
    main()
`

const quantizeScript = `import argparse

from onnxruntime.quantization import QuantType, quantize_dynamic


def main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--input", required=True)
    parser.add_argument("--output", required=True)
    parser.add_argument("--weight-type", default="int8")
    parser.add_argument("--per-channel", action="store_true")
    args = parser.parse_args()

    weight_type = QuantType.QInt8 if args.weight_type == "int8" else QuantType.QUInt8
    quantize_dynamic(
        args.input,
        args.output,
        per_channel=args.per_channel,
        weight_type=weight_type,
    )


if __name__ == "__main__":
    main()
`
