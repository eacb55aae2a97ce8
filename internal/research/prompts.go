package research

const systemPrompt = `You are a B2B sales research analyst. You research companies for account executives
selling integrated business planning software. Answer only from evidence you can support.
When asked for JSON, return only valid JSON with no commentary.`

const competitorsPrompt = `List the main direct competitors of the company at "%s".
Return a JSON array of company names (strings), most significant first, at most 8 entries.
Return [] if you cannot determine any.

Web research:
%s`

const techStackPrompt = `List the software platforms and tools the company at "%s" is known to use
(ERP, CRM, planning, analytics, data warehouse, cloud).
Known competitors for context: %s
Return a JSON array of product names (strings), at most 15 entries. Return [] if unknown.

Web research:
%s`

const decisionMakersPrompt = `Identify the roles most likely involved in buying planning software at the company at "%s".
Known competitors for context: %s
Return a JSON array of objects with these fields:
- title: string (e.g. "VP of Supply Chain")
- department: string
- influence: "high", "medium" or "low"
At most 6 entries. Do not invent people's names.`

const painPointsPrompt = `Describe the operational pain points the company at "%s" likely faces
in planning, forecasting and cross-functional alignment.
Known competitors for context: %s
Return a JSON array of short sentences (strings), at most 6 entries.`

const marketTrendsQuestion = `What are the most important current market trends affecting the industry of the company at "%s"?
Answer with a short list of trends.`

const marketTrendsPrompt = `Extract the market trends from the research below.
Return a JSON array of short sentences (strings), at most 6 entries. Return [] if none.

Research:
%s`

const companyProfilePrompt = `Extract a company profile for the company at "%s".
Return a valid JSON object with these fields:
- name: string
- industry: string
- size_band: "smb", "mid-market" or "enterprise"
- employee_range: string (e.g. "51-200" or "1000+")
- headquarters: string
- founded: string (year)
- description: string (one or two sentences)

If a field cannot be determined, use an empty string.

Homepage:
%s`

const goToMarketPrompt = `Describe how the company at "%s" goes to market.
Return a valid JSON object with these fields:
- channels: array of strings (e.g. "direct sales", "partners", "e-commerce")
- target_segments: array of strings
- sales_motion: one of "product-led", "sales-led", "partner-led", "hybrid" or "unknown"

Homepage:
%s`

const operationsPrompt = `Assess the integrated business planning maturity of the company at "%s".
Return a valid JSON object with these fields:
- processes: array of planning processes in place (e.g. "S&OP", "demand planning")
- data_centralization_pct: number 0-100, estimated share of planning data in a central system
- advanced_analytics: boolean, whether predictive or ML-driven planning is in use
- forecast_accuracy_pct: number 0-100, or 0 if unknown

Web research:
%s`

const buyingSignalsPrompt = `List recent buying signals for planning software at the company at "%s":
leadership hires, funding, expansion, ERP migrations, job postings for planning roles.
Return a JSON array of short sentences (strings), at most 8 entries. Return [] if none.

Web research:
%s`
