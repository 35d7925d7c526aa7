package styles

var analytical = Definition{
	ID:          "analytical",
	Name:        "Analytical",
	Description: "Data-rich dashboards with KPIs, charts, and tables",
	Prompt: `STYLE: ANALYTICAL DASHBOARD
• Lead with KPIs: grid(columns:N) of stat components for the 2-6 headline numbers.
• Follow with at least one chart; time series use line with fillArea, cross-sectional data uses bar.
• Put dense detail (ratios, ranges, per-period rows) in a data-table after the chart.
• Stocks and tickers: grid(4) > stat(price, change %, volume, market cap) + chart(line, currency USD) + alert(info about data freshness) + data-table(P/E, EPS, 52wk range, dividend, beta).
• Rankings ("top N companies") → chart(bar) + data-table with 7+ rows; no stat cards.
• Macro indicators → chart over time + data-table by period.`,
	ComponentPriority: []string{"alert", "grid", "stat", "chart", "data-table", "list", "accordion", "tabs", "card"},
}

var comparison = Definition{
	ID:          "comparison",
	Name:        "Comparison",
	Description: "Side-by-side analysis with charts and detail tables",
	Prompt: `STYLE: COMPARISON
• Open with a bar chart scoring each option on 4-8 shared criteria (1-10 scale); one dataset per option.
• Follow with a data-table of 8+ rows: one row per attribute, one column per option. Fill every cell.
• Never mix units on one chart axis.
• Close with a short verdict in "text" and, when useful, an accordion of "best for" scenarios.
• Multiple stocks → one bar chart comparing all on the same metric + per-stock data-table.`,
	ComponentPriority: []string{"alert", "chart", "data-table", "grid", "stat", "list", "accordion", "tabs", "card"},
}

var content = Definition{
	ID:          "content",
	Name:        "Content",
	Description: "Rich editorial content with sections, lists, and structured narrative",
	Prompt: `STYLE: EDITORIAL CONTENT
• Structure the answer as sections: text(h2) headings with text(body) paragraphs.
• Use list for key facts, accordion for deeper sub-topics or FAQs, tabs for parallel perspectives.
• Use cards to group a heading with its supporting components.
• Add a data-table only when the topic has genuinely tabular facts (dates, figures, specs).
• Visual topics ("what does X look like") → image components from [Available Images].`,
	ComponentPriority: []string{"alert", "text", "card", "list", "data-table", "accordion", "tabs", "grid", "chart", "stat"},
}

var howto = Definition{
	ID:          "howto",
	Name:        "How-To",
	Description: "Step-by-step instructions and procedural guides",
	Prompt: `STYLE: HOW-TO GUIDE
• Core of the answer is list(variant:numbered): one concrete action per step, in order.
• Prerequisites or tools → list(variant:checklist) before the steps.
• Warnings and gotchas → alert(warning) at the top.
• Commands or config snippets → text(variant:code).
• Troubleshooting → accordion with one item per symptom.`,
	ComponentPriority: []string{"alert", "list", "text", "accordion", "card", "data-table", "tabs", "grid", "chart", "stat"},
}

var quick = Definition{
	ID:          "quick",
	Name:        "Quick Answer",
	Description: "Concise direct answers for simple questions",
	Prompt: `STYLE: QUICK ANSWER
• "text" carries the full answer in one or two sentences.
• Add at most two components: a text or short list with supporting facts, or chips for related terms.
• No charts, grids, or tables unless the question is explicitly numeric.`,
	ComponentPriority: []string{"alert", "text", "list", "chip", "card", "data-table", "accordion", "stat", "chart", "grid", "tabs"},
}

// builtin 注册顺序即 /api/styles 的展示顺序
var builtin = []Definition{analytical, content, comparison, howto, quick}
